package dbmongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gochat/internal/common"
	"gochat/internal/media"
)

// MediaStorage keeps attachments and avatars in a GridFS bucket.
type MediaStorage struct {
	gridFS *gridfs.Bucket
}

var _ media.Storage = (*MediaStorage)(nil)

func NewMediaStorage(mongoClient *MongoClient) *MediaStorage {
	return &MediaStorage{
		gridFS: mongoClient.GridFS,
	}
}

type fileMetadata struct {
	ContentType string    `bson:"content_type"`
	Kind        string    `bson:"kind"`
	UploadedBy  string    `bson:"uploaded_by"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

func (ms *MediaStorage) Upload(ctx context.Context, filename, contentType, uploaderID string, content io.Reader) (*media.File, error) {
	now := time.Now().UTC()
	metadata := fileMetadata{
		ContentType: contentType,
		Kind:        common.DetectAttachmentKind(contentType).String(),
		UploadedBy:  uploaderID,
		UploadedAt:  now,
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := ms.gridFS.OpenUploadStream(filename, opts)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	size, err := io.Copy(stream, content)
	if err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("file copy failed: %w", err)
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	return &media.File{
		ID:          stream.FileID.(primitive.ObjectID).Hex(),
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  uploaderID,
		UploadedAt:  now,
	}, nil
}

func (ms *MediaStorage) Download(ctx context.Context, fileID string) (io.ReadCloser, *media.File, error) {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, nil, common.NotFoundError("file %s", fileID)
	}

	stream, err := ms.gridFS.OpenDownloadStream(objectID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, common.NotFoundError("file %s", fileID)
		}
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}

	info := stream.GetFile()
	var metadata fileMetadata
	if info.Metadata != nil {
		if err := bson.Unmarshal(info.Metadata, &metadata); err != nil {
			_ = stream.Close()
			return nil, nil, fmt.Errorf("decode file metadata: %w", err)
		}
	}

	return stream, &media.File{
		ID:          fileID,
		Filename:    info.Name,
		ContentType: metadata.ContentType,
		Size:        info.Length,
		UploadedBy:  metadata.UploadedBy,
		UploadedAt:  info.UploadDate,
	}, nil
}

func (ms *MediaStorage) Delete(ctx context.Context, fileID string) error {
	objectID, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return common.NotFoundError("file %s", fileID)
	}
	if err := ms.gridFS.DeleteContext(ctx, objectID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return common.NotFoundError("file %s", fileID)
		}
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}
