package generation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SpacesArchiver re-hosts generated art into a Spaces bucket so cards
// survive the art service expiring its URLs.
type SpacesArchiver struct {
	client   *s3.Client
	bucket   string
	region   string
	cardRoot string
	http     *http.Client
}

func NewSpacesArchiver(key, secret, region, bucket, cardRoot string) (*SpacesArchiver, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load Spaces config: %w", err)
	}

	return &SpacesArchiver{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		region:   region,
		cardRoot: strings.TrimPrefix(cardRoot, "/"),
		http:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Archive downloads the generated image and uploads it under the card's
// key. On any failure the original URL is returned so the pull still
// completes with usable art.
func (s *SpacesArchiver) Archive(ctx context.Context, imageURL, theme, cardID string) string {
	if imageURL == PlaceholderImageURL {
		return imageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return imageURL
	}

	resp, err := s.http.Do(req)
	if err != nil {
		slog.Warn("Failed to download generated image for archival",
			slog.String("type", "gen"),
			slog.String("url", imageURL),
			slog.String("error", err.Error()))
		return imageURL
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return imageURL
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return imageURL
	}

	key := fmt.Sprintf("%s/%s/%s.jpg", s.cardRoot, theme, cardID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        strings.NewReader(string(data)),
		ContentType: aws.String("image/jpeg"),
		ACL:         "public-read",
	})
	if err != nil {
		slog.Warn("Failed to archive image to Spaces",
			slog.String("type", "gen"),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return imageURL
	}

	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, key)
}
