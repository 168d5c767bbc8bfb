package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/models"
)

func TestParsePaginationParams(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageLimit, limit)

	page, limit, err = parsePaginationParams("3", "500")
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, maxPageLimit, limit)

	for _, in := range [][2]string{{"0", ""}, {"", "-1"}, {"x", ""}, {"", "ten"}} {
		_, _, err := parsePaginationParams(in[0], in[1])
		assert.ErrorIs(t, err, errInvalidPagination)
	}
}

func TestPaginationBody(t *testing.T) {
	assert.EqualValues(t, 0, paginationBody(1, 20, 0)["totalPages"])
	assert.EqualValues(t, 1, paginationBody(1, 20, 20)["totalPages"])
	assert.EqualValues(t, 2, paginationBody(1, 20, 21)["totalPages"])
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Summer Dresses":       "summer-dresses",
		"  Shoes & Boots!! ":   "shoes-boots",
		"T-Shirts / Tops 2026": "t-shirts-tops-2026",
		"***":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestFillRevenueGaps(t *testing.T) {
	from := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	series := []dailyRevenue{
		{Date: "2026-02-28", Revenue: 120.5, Orders: 2},
		{Date: "2026-03-02", Revenue: 10, Orders: 1},
	}

	out := fillRevenueGaps(series, from, to)

	require.Len(t, out, 4)
	assert.Equal(t, dailyRevenue{Date: "2026-02-27"}, out[0])
	assert.Equal(t, series[0], out[1])
	assert.Equal(t, dailyRevenue{Date: "2026-03-01"}, out[2])
	assert.Equal(t, series[1], out[3])
}

func TestStartOfDayUTC(t *testing.T) {
	in := time.Date(2026, 7, 4, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))

	assert.Equal(t, time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), startOfDayUTC(in))
}

func TestOrderStatusUpdate(t *testing.T) {
	shipped := models.OrderShipped
	paid := models.PaymentPaid
	bogus := models.OrderStatus("lost")

	set, err := orderStatusRequest{Status: &shipped, PaymentStatus: &paid}.statusUpdate()
	require.NoError(t, err)
	assert.Equal(t, bson.M{"status": shipped, "paymentStatus": paid}, set)

	_, err = orderStatusRequest{Status: &bogus}.statusUpdate()
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = orderStatusRequest{}.statusUpdate()
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPublicProductFilter(t *testing.T) {
	filter := publicProductFilter(" Shoes ", "a.b", "true", "TRUE")

	assert.Equal(t, primitive.Regex{Pattern: "^Shoes$", Options: "i"}, filter["category"])
	assert.Equal(t, bson.A{
		bson.M{"name": primitive.Regex{Pattern: `a\.b`, Options: "i"}},
		bson.M{"brand": primitive.Regex{Pattern: `a\.b`, Options: "i"}},
	}, filter["$or"])
	assert.Equal(t, true, filter["isFeatured"])
	assert.Equal(t, true, filter["saleEnabled"])
	assert.Equal(t, bson.M{"$ne": true}, filter["isDeleted"])

	plain := publicProductFilter("", "", "", "")
	assert.Len(t, plain, len(visibleProducts))
}

func TestProductSort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "price", Value: 1}}, productSort("price_asc"))
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, productSort("anything"))
}

func TestOrderByIDsKeepsSetOrder(t *testing.T) {
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	products := []models.Product{{ID: c, Name: "c"}, {ID: a, Name: "a"}}

	out := orderByIDs([]primitive.ObjectID{a, b, c}, products)

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Name)
	assert.Equal(t, "c", out[1].Name)
}

func uploadHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["image"][0]
}

func TestUploadStoreSaveAndDelete(t *testing.T) {
	root := t.TempDir()
	store := NewUploadStore(root, logger.Nop())

	rel, err := store.SaveImage(uploadHeader(t, "Photo.PNG", []byte("png-bytes")), "products")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "uploads/products/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))

	stored, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), stored)

	require.NoError(t, store.Delete("/"+rel))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(rel), "missing files are not an error")
	assert.NoError(t, store.Delete(""))
}

func TestUploadStoreRejects(t *testing.T) {
	root := t.TempDir()
	store := NewUploadStore(root, logger.Nop())

	_, err := store.SaveImage(uploadHeader(t, "notes.txt", []byte("x")), "products")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = store.SaveImage(uploadHeader(t, "noext", []byte("x")), "products")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	big := uploadHeader(t, "big.jpg", []byte("x"))
	big.Size = maxImageSize + 1
	_, err = store.SaveImage(big, "products")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	secret := filepath.Join(root, "config.env")
	require.NoError(t, os.WriteFile(secret, []byte("k=v"), 0o600))
	assert.Error(t, store.Delete("config.env"))
	assert.Error(t, store.Delete("uploads/../config.env"))
	_, err = os.Stat(secret)
	assert.NoError(t, err)
}

func TestHomeFallsBackToAdminLogin(t *testing.T) {
	dir := t.TempDir()
	r := gin.New()
	r.GET("/", Home(dir))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>shop</h1>"), 0o644))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop")
}
