// Package s3 implements the release backend for S3-compatible object
// storage. Releases are synthesized from object keys following the
// fixed naming convention
//
//	<prefix>-<version>-<target>.<extension>
//
// e.g. "myapp-1.4.0-x86_64-apple-darwin.tar.gz" under prefix "myapp".
// The prefix may contain path separators ("releases/myapp"). Keys that
// do not follow the convention are skipped, not errors. Any S3-style
// endpoint works, including non-AWS providers, via WithEndpoint.
package s3

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/mod/semver"

	"github.com/lansespirit/selfupdate"
	"github.com/lansespirit/selfupdate/internal/logger"
)

const (
	defaultEndpoint = "s3.amazonaws.com"
	defaultRegion   = "us-east-1"
)

type (
	// Client lists release objects in one bucket under one key prefix.
	Client struct {
		mc           *minio.Client
		bucket       string
		prefix       string
		downloadBase string
	}

	settings struct {
		endpoint  string
		region    string
		accessKey string
		secretKey string
		insecure  bool
		pathStyle bool
	}

	Option func(*settings)
)

// WithEndpoint points the client at a non-AWS S3-compatible endpoint,
// e.g. "storage.googleapis.com" or a MinIO host.
func WithEndpoint(endpoint string) Option {
	return func(s *settings) { s.endpoint = endpoint }
}

// WithRegion sets the bucket region, used for signing and for building
// AWS download URLs.
func WithRegion(region string) Option {
	return func(s *settings) { s.region = region }
}

// WithCredentials signs requests with a static key pair. Without it,
// requests are anonymous, which suits public release buckets.
func WithCredentials(accessKey, secretKey string) Option {
	return func(s *settings) {
		s.accessKey = accessKey
		s.secretKey = secretKey
	}
}

// WithPathStyle forces path-style bucket addressing, required by some
// non-AWS providers.
func WithPathStyle() Option {
	return func(s *settings) { s.pathStyle = true }
}

// WithInsecure disables TLS, for local test endpoints.
func WithInsecure() Option {
	return func(s *settings) { s.insecure = true }
}

// New returns a Client for the bucket and asset prefix. Both are
// required.
func New(bucket, prefix string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3: bucket required")
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("s3: asset prefix required")
	}

	s := settings{endpoint: defaultEndpoint, region: defaultRegion}
	for _, opt := range opts {
		opt(&s)
	}

	creds := credentials.NewStatic("", "", "", credentials.SignatureAnonymous)
	if s.accessKey != "" {
		creds = credentials.NewStaticV4(s.accessKey, s.secretKey, "")
	}
	lookup := minio.BucketLookupAuto
	if s.pathStyle {
		lookup = minio.BucketLookupPath
	}
	mc, err := minio.New(s.endpoint, &minio.Options{
		Creds:        creds,
		Secure:       !s.insecure,
		Region:       s.region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}

	return &Client{
		mc:           mc,
		bucket:       bucket,
		prefix:       prefix,
		downloadBase: downloadBase(bucket, s),
	}, nil
}

// downloadBase is the public URL prefix assets are fetched from:
// virtual-hosted style on AWS, path style everywhere else.
func downloadBase(bucket string, s settings) string {
	scheme := "https"
	if s.insecure {
		scheme = "http"
	}
	if s.endpoint == defaultEndpoint && !s.pathStyle {
		return fmt.Sprintf("%s://%s.s3.%s.amazonaws.com/", scheme, bucket, s.region)
	}
	return fmt.Sprintf("%s://%s/%s/", scheme, s.endpoint, bucket)
}

// ListReleases lists objects under the prefix and groups matching keys
// into synthetic releases, newest version first.
func (c *Client) ListReleases(ctx context.Context) ([]selfupdate.Release, error) {
	objects := c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    c.prefix,
		Recursive: true,
	})

	byVersion := make(map[string]*selfupdate.Release)
	for obj := range objects {
		if obj.Err != nil {
			if minio.ToErrorResponse(obj.Err).Code == "NoSuchBucket" {
				return nil, fmt.Errorf("s3: bucket %s: %w", c.bucket, selfupdate.ErrRepositoryNotFound)
			}
			return nil, fmt.Errorf("s3: listing %s: %w", c.bucket, obj.Err)
		}

		key, ok := parseKey(obj.Key, c.prefix)
		if !ok {
			logger.Debug("s3: skipping key %q (naming convention mismatch)", obj.Key)
			continue
		}

		rel := byVersion[key.version]
		if rel == nil {
			rel = &selfupdate.Release{
				TagName: key.rawVersion,
				Version: key.version,
				Name:    fmt.Sprintf("%s %s", path.Base(c.prefix), key.version),
			}
			byVersion[key.version] = rel
		}
		if rel.Date == "" && !obj.LastModified.IsZero() {
			rel.Date = obj.LastModified.Format(time.RFC3339)
		}
		rel.Assets = append(rel.Assets, selfupdate.Asset{
			Name: path.Base(obj.Key),
			URL:  c.downloadBase + obj.Key,
			Size: obj.Size,
		})
	}

	return sortReleases(byVersion), nil
}

// LatestRelease returns the highest-versioned release under the prefix.
func (c *Client) LatestRelease(ctx context.Context) (*selfupdate.Release, error) {
	releases, err := c.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, fmt.Errorf("s3: bucket %s prefix %s: %w", c.bucket, c.prefix, selfupdate.ErrReleaseNotFound)
	}
	return &releases[0], nil
}

// sortReleases orders releases newest-first so this backend upholds the
// same ordering contract the API backends get from their servers.
func sortReleases(byVersion map[string]*selfupdate.Release) []selfupdate.Release {
	out := make([]selfupdate.Release, 0, len(byVersion))
	for _, rel := range byVersion {
		out = append(out, *rel)
	}
	sort.Slice(out, func(i, j int) bool {
		return semver.Compare("v"+out[i].Version, "v"+out[j].Version) > 0
	})
	return out
}

type parsedKey struct {
	rawVersion string // version segment as it appears in the key
	version    string // normalized
	target     string
}

// parseKey matches an object key against the naming convention. ok is
// false for any key that does not follow it, including keys with an
// unparseable version segment.
func parseKey(key, prefix string) (parsedKey, bool) {
	rest, found := strings.CutPrefix(key, prefix+"-")
	if !found {
		return parsedKey{}, false
	}
	i := strings.Index(rest, "-")
	if i <= 0 {
		return parsedKey{}, false
	}
	raw := rest[:i]
	version, err := selfupdate.NormalizeTag(raw)
	if err != nil {
		return parsedKey{}, false
	}
	target := trimArchiveExt(rest[i+1:])
	if target == "" {
		return parsedKey{}, false
	}
	return parsedKey{rawVersion: raw, version: version, target: target}, true
}

// Extension order matters: compound extensions strip before their
// suffixes.
var archiveExts = []string{".tar.gz", ".tar.xz", ".tgz", ".txz", ".tar", ".zip", ".gz", ".xz", ".exe"}

func trimArchiveExt(s string) string {
	for _, ext := range archiveExts {
		if strings.HasSuffix(s, ext) {
			return strings.TrimSuffix(s, ext)
		}
	}
	return s
}
