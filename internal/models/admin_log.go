package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminAction is the closed set of audited privileged mutations.
type AdminAction string

const (
	ActionPasswordChanged     AdminAction = "password_changed"
	ActionPasswordChangedSelf AdminAction = "password_changed_self"
	ActionAdminCreated        AdminAction = "admin_created"
	ActionAdminDeleted        AdminAction = "admin_deleted"
	ActionAdminDemoted        AdminAction = "admin_demoted"
	ActionAdminPromoted       AdminAction = "admin_promoted"
	ActionMasterAdminPromoted AdminAction = "master_admin_promoted"
	ActionUserUpdated         AdminAction = "user_updated"
)

var adminActions = map[AdminAction]struct{}{
	ActionPasswordChanged:     {},
	ActionPasswordChangedSelf: {},
	ActionAdminCreated:        {},
	ActionAdminDeleted:        {},
	ActionAdminDemoted:        {},
	ActionAdminPromoted:       {},
	ActionMasterAdminPromoted: {},
	ActionUserUpdated:         {},
}

func (a AdminAction) Valid() bool {
	_, ok := adminActions[a]
	return ok
}

// AdminLog is an immutable audit record. It is inserted once and never updated.
type AdminLog struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AdminID      primitive.ObjectID  `bson:"adminId" json:"adminId"`
	AdminEmail   string              `bson:"adminEmail" json:"adminEmail"`
	Action       AdminAction         `bson:"action" json:"action"`
	TargetUserID *primitive.ObjectID `bson:"targetUserId,omitempty" json:"targetUserId,omitempty"`
	TargetEmail  string              `bson:"targetEmail,omitempty" json:"targetEmail,omitempty"`
	Details      string              `bson:"details" json:"details"`
	IPAddress    string              `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
}
