package entity

import (
	"time"
)

// FileMetadata records an uploaded message attachment so its uploader can
// list and remove it later.
type FileMetadata struct {
	ID          string    `json:"id" firestore:"id" bson:"_id"`
	URL         string    `json:"url" firestore:"url" bson:"url"`
	UploadedBy  string    `json:"uploaded_by" firestore:"uploadedBy" bson:"uploadedBy"`
	Filename    string    `json:"filename" firestore:"filename" bson:"filename"`
	ContentType string    `json:"content_type" firestore:"contentType" bson:"contentType"`
	Size        int64     `json:"size" firestore:"size" bson:"size"`
	IsPublic    bool      `json:"is_public" firestore:"isPublic" bson:"isPublic"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
}
