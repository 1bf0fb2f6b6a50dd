package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/anime-shed/morph-inspector-go/pkg/models"
)

// AzureScheme is the location scheme for blobs in the configured account
const AzureScheme = "azblob"

// ErrInvalidBlobLocation indicates a location that does not name a blob
var ErrInvalidBlobLocation = errors.New("invalid blob location")

// BlobLocation names one blob in a container
type BlobLocation struct {
	Account   string
	Container string
	Blob      string
}

// ParseBlobLocation accepts azblob://container/blob and
// https://<account>.blob.core.windows.net/container/blob
func ParseBlobLocation(location string) (BlobLocation, error) {
	u, err := url.Parse(location)
	if err != nil {
		return BlobLocation{}, fmt.Errorf("%w: %v", ErrInvalidBlobLocation, err)
	}

	var loc BlobLocation
	var path string
	switch {
	case u.Scheme == AzureScheme:
		loc.Container = u.Host
		path = strings.TrimPrefix(u.Path, "/")
	case IsAzureBlobHost(u.Host):
		loc.Account = strings.SplitN(u.Host, ".", 2)[0]
		container, rest, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		loc.Container = container
		path = rest
	default:
		return BlobLocation{}, fmt.Errorf("%w: %s", ErrInvalidBlobLocation, location)
	}

	loc.Blob = path
	if loc.Container == "" || loc.Blob == "" {
		return BlobLocation{}, fmt.Errorf("%w: missing container or blob in %s", ErrInvalidBlobLocation, location)
	}
	return loc, nil
}

// IsAzureBlobHost reports whether host is an Azure Blob service endpoint
func IsAzureBlobHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), ".blob.core.windows.net")
}

// blobOpener opens a blob for reading and reports its content type
type blobOpener interface {
	open(ctx context.Context, container, blob string) (io.ReadCloser, string, error)
}

type azblobOpener struct {
	client *azblob.Client
}

func (o azblobOpener) open(ctx context.Context, container, blob string) (io.ReadCloser, string, error) {
	resp, err := o.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
			return nil, "", fmt.Errorf("%w: %s/%s", ErrImageNotFound, container, blob)
		}
		return nil, "", fmt.Errorf("download failed: %w", err)
	}

	var contentType string
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return resp.Body, contentType, nil
}

// AzureImageFetcher implements ImageFetcher for Azure Blob Storage
type AzureImageFetcher struct {
	account string
	opener  blobOpener
	limits  Limits
}

// NewAzureImageFetcher creates a fetcher for one storage account. An empty
// key uses anonymous access, which serves public containers only.
func NewAzureImageFetcher(accountName, accountKey string, limits Limits) (*AzureImageFetcher, error) {
	if accountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", accountName)

	var client *azblob.Client
	var err error
	if accountKey == "" {
		client, err = azblob.NewClientWithNoCredential(serviceURL, nil)
	} else {
		var credential *azblob.SharedKeyCredential
		credential, err = azblob.NewSharedKeyCredential(accountName, accountKey)
		if err != nil {
			return nil, fmt.Errorf("invalid azure credentials: %w", err)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}

	return &AzureImageFetcher{account: accountName, opener: azblobOpener{client: client}, limits: limits}, nil
}

// FetchImage downloads and decodes the blob named by location
func (a *AzureImageFetcher) FetchImage(ctx context.Context, location string) (image.Image, *models.ImageMetadata, error) {
	loc, err := ParseBlobLocation(location)
	if err != nil {
		return nil, nil, err
	}
	if loc.Account != "" && !strings.EqualFold(loc.Account, a.account) {
		return nil, nil, fmt.Errorf("%w: account %q is not configured", ErrInvalidBlobLocation, loc.Account)
	}

	body, contentType, err := a.opener.open(ctx, loc.Container, loc.Blob)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	img, meta, err := ReadImage(body, a.limits)
	if err != nil {
		return nil, nil, err
	}
	meta.ContentType = contentType
	return img, meta, nil
}
