package models

import "time"

// SiteConfigKey is the _id of the single site config document.
const SiteConfigKey = "site"

type Banner struct {
	Title    string `bson:"title" json:"title" binding:"required"`
	Subtitle string `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	ImageURL string `bson:"imageUrl" json:"imageUrl" binding:"required"`
	Link     string `bson:"link,omitempty" json:"link,omitempty"`
	IsActive bool   `bson:"isActive" json:"isActive"`
}

type SiteConfig struct {
	ID           string    `bson:"_id" json:"-"`
	Banners      []Banner  `bson:"banners" json:"banners"`
	Announcement string    `bson:"announcement,omitempty" json:"announcement,omitempty"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
