package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// UploadDir is where uploaded product images live; served statically
// under /uploads by the router.
const UploadDir = "./uploads"

// SavePath builds a unique on-disk path for an uploaded filename,
// e.g. "./uploads/167890123_burger.jpg"
func SavePath(filename string) string {
	return filepath.Join(UploadDir, fmt.Sprintf("%d_%s", time.Now().Unix(), filename))
}

// PublicURL turns a saved path into the URL the frontend uses
func PublicURL(baseURL, path string) string {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return baseURL + "/uploads/" + filepath.Base(path)
}

// Remove deletes a stored file, best effort. Product deletion calls
// this for each media row; a failure here is logged and swallowed so
// it never aborts the database deletion.
func Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not remove stored file %s: %v", path, err)
	}
}
