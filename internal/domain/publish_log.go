package domain

import "time"

// PublishLog one row per catalog item published to the network
type PublishLog struct {
	ID          int64     `json:"id,string" gorm:"primaryKey"`
	ItemID      string    `json:"item_id" gorm:"index;size:255"`
	Title       string    `json:"title"`
	Source      string    `json:"source" gorm:"size:32"` // api, cli, import
	Payload     string    `json:"payload" gorm:"type:text"`
	PublishedAt time.Time `json:"published_at" gorm:"index"`
}

// TableName Specify table name
func (PublishLog) TableName() string {
	return "beckn_publish_log"
}

// KVEntry backing row for the sql network store
type KVEntry struct {
	Key       string    `gorm:"column:kv_key;primaryKey;size:512"`
	Value     string    `gorm:"column:kv_value;type:text"`
	UpdatedAt time.Time `gorm:"index"`
}

// TableName Specify table name
func (KVEntry) TableName() string {
	return "beckn_kv"
}
