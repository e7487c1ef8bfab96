package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rlagosf/rafc-go-backend/internal/domain"
)

const contractPathPrefix = "contratos"

var (
	ErrArchiveBucketFailed = errors.New("failed to prepare archive bucket")
	ErrArchiveUploadFailed = errors.New("failed to archive contract document")
)

// ContractArchive keeps an off-database copy of signed documents. The
// database row is authoritative; the archive is backup and audit material.
type ContractArchive interface {
	Store(ctx context.Context, contract *domain.SignedContract) (string, error)
}

// MinIOContractArchive implements ContractArchive on S3-compatible storage.
type MinIOContractArchive struct {
	client     *minio.Client
	bucketName string
}

func NewMinIOContractArchive(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOContractArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	archive := &MinIOContractArchive{client: client, bucketName: bucketName}
	if err := archive.ensureBucketExists(context.Background()); err != nil {
		return nil, err
	}
	return archive, nil
}

func (a *MinIOContractArchive) ensureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrArchiveBucketFailed, err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrArchiveBucketFailed, err)
		}
	}
	return nil
}

func (a *MinIOContractArchive) Store(ctx context.Context, contract *domain.SignedContract) (string, error) {
	objectKey := fmt.Sprintf("%s/player-%d/%s.pdf", contractPathPrefix, contract.PlayerRut, uuid.New().String())

	metadata := map[string]string{
		"Contract-ID":  fmt.Sprintf("%d", contract.ID),
		"Player-Rut":   fmt.Sprintf("%d", contract.PlayerRut),
		"Guardian-Rut": fmt.Sprintf("%d", contract.GuardianRut),
		"Generated-At": contract.GeneratedAt.Format(time.RFC3339),
	}

	_, err := a.client.PutObject(ctx, a.bucketName, objectKey,
		bytes.NewReader(contract.Document), int64(len(contract.Document)),
		minio.PutObjectOptions{
			ContentType:  "application/pdf",
			UserMetadata: metadata,
		})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArchiveUploadFailed, err)
	}
	return objectKey, nil
}
