package store

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// DocumentRecord is the gorm view of the documents table, used by the REST
// index endpoints. The collaboration path writes the same table through
// MySQLStore.
type DocumentRecord struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Title     string    `gorm:"size:255" json:"title"`
	Content   string    `gorm:"type:longtext" json:"content"`
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (DocumentRecord) TableName() string { return "documents" }

// SnapshotRecord is one historical snapshot row.
type SnapshotRecord struct {
	DocumentID string    `gorm:"primaryKey;size:64" json:"documentId"`
	Revision   uint64    `gorm:"primaryKey" json:"revision"`
	Content    string    `gorm:"type:longtext" json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (SnapshotRecord) TableName() string { return "document_snapshots" }

// InitMySQL opens a gorm handle and migrates the document tables.
func InitMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&DocumentRecord{}, &SnapshotRecord{}); err != nil {
		return nil, err
	}
	return db, nil
}
