package domain

import "time"

// Asset is the media projection written for each stored generated image.
// Ownership passes to the media subsystem once written; this core only
// creates assets, never updates or deletes them.
type Asset struct {
	ID          string    `json:"id" bson:"id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Filename    string    `json:"filename" bson:"filename"`
	ContentType string    `json:"content_type" bson:"content_type"`
	ByteSize    int64     `json:"byte_size" bson:"byte_size"`
	StorageKey  string    `json:"storage_key" bson:"storage_key"`
	URL         string    `json:"url" bson:"url"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}
