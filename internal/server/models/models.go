// Package models defines server-side data models persisted in the database
// and the projections the query layer returns.
package models

import "time"

// Owner groups clients and archives. Mode is the stored privilege override.
type Owner struct {
	ID   string
	Name *string
	Mode *int
}

// Client is one bearer-credential holder.
type Client struct {
	ID      string
	Name    string
	OwnerID string
}

// Archive is the metadata record of one uploaded package.
type Archive struct {
	ID         string
	Name       string
	OwnerID    string
	UploadTime time.Time
	UpdateTime time.Time
	Downloads  int64
}

// ArchiveOwner is an archive joined with the fields of its owner that the
// authorization gate needs.
type ArchiveOwner struct {
	Archive
	OwnerName *string
	OwnerMode *int
}

type Dimension struct {
	ID    int64
	Name  string
	Emoji *string
}

// DimensionCount is a dimension with a quiz count, either for one archive or
// aggregated across all archives.
type DimensionCount struct {
	Dimension
	QuizCount int64
}

// ArchiveSummary is one row of an archive listing.
type ArchiveSummary struct {
	ID         string
	Name       string
	OwnerName  *string
	UploadTime time.Time
	UpdateTime time.Time
	Downloads  int64
	Likes      int64
	Dimensions []DimensionCount
}

// ClientOwner is a client together with its owner, as used by whoami.
type ClientOwner struct {
	Client
	OwnerName *string
	OwnerMode *int
}
