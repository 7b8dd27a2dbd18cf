package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/rocjay1/spend-analytics/internal/models"
)

const snapshotTimeLayout = "20060102T150405Z"

// BlobService archives analytics summaries in Azure Blob Storage.
type BlobService struct {
	client    *azblob.Client
	container string
	cipher    snapshotCipher
}

// NewBlobService creates a new BlobService instance.
func NewBlobService() (*BlobService, error) {
	blobURL := os.Getenv("BLOB_SERVICE_URL")
	if blobURL == "" {
		return nil, fmt.Errorf("BLOB_SERVICE_URL environment variable is required")
	}

	slog.Info("initializing blob service", "blob_url", blobURL)
	var client *azblob.Client

	// Check if running locally with Azurite (http endpoint)
	if isLocal(blobURL) {
		slog.Info("using Azurite shared key credentials for blob service")
		name, key := getAzuriteCredentials()
		cred, err := azblob.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(blobURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = azblob.NewClient(blobURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
	}

	svc := &BlobService{
		client:    client,
		container: getEnv("SNAPSHOT_CONTAINER", "analytics-snapshots"),
		cipher:    snapshotCipher{passphrase: os.Getenv("SNAPSHOT_PASSPHRASE")},
	}

	slog.Info("blob service initialized successfully",
		"container", svc.container,
		"encrypted", svc.cipher.enabled(),
	)
	return svc, nil
}

// ArchiveSummary stores a copy of the summary as <user>/<updatedAt>.json and
// returns the blob name.
func (s *BlobService) ArchiveSummary(ctx context.Context, userID string, summary models.AnalyticsSummary) (string, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}

	data, err = s.cipher.seal(data)
	if err != nil {
		return "", err
	}

	name := snapshotBlobName(userID, summary)
	if err := s.UploadBytes(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// ListSnapshots returns the archived snapshot names for a user, oldest first.
func (s *BlobService) ListSnapshots(ctx context.Context, userID string) ([]string, error) {
	prefix := userID + "/"
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	names := []string{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return names, nil
			}
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		for _, item := range resp.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, strings.TrimPrefix(*item.Name, prefix))
			}
		}
	}
	return names, nil
}

// DownloadSnapshot reads back an archived summary. name is relative to the
// user's prefix, as returned by ListSnapshots.
func (s *BlobService) DownloadSnapshot(ctx context.Context, userID, name string) (*models.AnalyticsSummary, error) {
	if !validSnapshotName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSnapshotName, name)
	}

	data, err := s.DownloadBytes(ctx, userID+"/"+name)
	if err != nil {
		return nil, err
	}

	data, err = s.cipher.open(data)
	if err != nil {
		return nil, err
	}

	var summary models.AnalyticsSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &summary, nil
}

// UploadBytes uploads data to a blob in the snapshot container.
func (s *BlobService) UploadBytes(ctx context.Context, blobName string, data []byte) error {
	// Create container if not exists (mostly for dev)
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		slog.Warn("failed to create container (may already exist)", "container", s.container, "error", err)
	}

	contentType := "application/json"
	if s.cipher.enabled() {
		contentType = "application/octet-stream"
	}

	_, err = s.client.UploadBuffer(ctx, s.container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		slog.Error("failed to upload blob", "container", s.container, "blob_name", blobName, "error", err)
		return fmt.Errorf("failed to upload blob %s/%s: %w", s.container, blobName, err)
	}
	slog.Info("uploaded blob", "container", s.container, "blob_name", blobName, "size_bytes", len(data))
	return nil
}

// DownloadBytes downloads a blob from the snapshot container.
func (s *BlobService) DownloadBytes(ctx context.Context, blobName string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to download blob %s/%s: %w", s.container, blobName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob content: %w", err)
	}
	return data, nil
}

func snapshotBlobName(userID string, summary models.AnalyticsSummary) string {
	return fmt.Sprintf("%s/%s.json", userID, summary.UpdatedAt.UTC().Format(snapshotTimeLayout))
}

func validSnapshotName(name string) bool {
	return name != "" && !strings.Contains(name, "/") && !strings.Contains(name, "..")
}
