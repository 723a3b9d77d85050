package kvstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStore keeps every key as one block blob in a container.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore connects with a shared key credential and makes sure the
// container exists. An empty serviceURL means the public endpoint of
// accountName.
func NewAzureStore(ctx context.Context, serviceURL, accountName, accountKey, container string) (*AzureStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	_, err = client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("create container %s: %w", container, err)
	}

	return &AzureStore{client: client, container: container}, nil
}

func blobName(key string) string {
	return url.PathEscape(key) + ".json"
}

func (s *AzureStore) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, blobName(key), nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("download failed: %w", err)
	}

	retryReader := resp.Body
	defer retryReader.Close()

	data, err := io.ReadAll(retryReader)
	if err != nil {
		return "", false, fmt.Errorf("read blob: %w", err)
	}
	return string(data), true, nil
}

func (s *AzureStore) Set(ctx context.Context, key, value string) error {
	_, err := s.client.UploadStream(ctx, s.container, blobName(key), bytes.NewReader([]byte(value)), nil)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	return nil
}

func (s *AzureStore) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, blobName(key), nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}
