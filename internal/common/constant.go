package common

// Version is the API compatibility version reported by the banner endpoint.
const Version = 1

// BuildDate is overridden at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/opacity/internal/common.BuildDate=2025-05-07"
var BuildDate = "unknown"

const (
	// ArchiveExtension is appended to the archive id in download file names.
	ArchiveExtension = ".psarchive"
	// ArchiveContentType is the media type of a stored archive blob.
	ArchiveContentType = "application/gzip"
)
