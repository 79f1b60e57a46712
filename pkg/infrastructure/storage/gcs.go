package storage

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
)

// StorageAdapter writes archive objects in Google Cloud Storage.
type StorageAdapter struct {
	Client *storage.Client
}

// Write uploads data as one object. JSON objects get an application/json
// content type.
func (a *StorageAdapter) Write(ctx context.Context, bucketName, objectName string, data []byte) error {
	wc := a.Client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType(objectName)
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("write gs://%s/%s: %w", bucketName, objectName, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", bucketName, objectName, err)
	}
	return nil
}

func (a *StorageAdapter) Close() error {
	return a.Client.Close()
}

func contentType(objectName string) string {
	switch path.Ext(objectName) {
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
