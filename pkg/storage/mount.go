package storage

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"

	"loop-frame/pkg/config"
)

// ErrNotMounted is returned when the asset root is missing or already unmounted.
var ErrNotMounted = errors.New("asset root not mounted")

// Mount is the asset root the source video is read from.
type Mount struct {
	root    string
	mounted bool
}

// MountRoot checks that root is a readable directory. Failure is fatal for the player.
func MountRoot(root string) (*Mount, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(ErrNotMounted, "%s: %v", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(ErrNotMounted, "%s: %v", abs, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrNotMounted, "%s is not a directory", abs)
	}
	log.Printf("MountRoot: mounted %s", abs)
	return &Mount{root: abs, mounted: true}, nil
}

// Root returns the absolute asset root.
func (m *Mount) Root() string { return m.root }

// Resolve maps a path relative to the root to an absolute path. Paths that
// would leave the root are rejected.
func (m *Mount) Resolve(rel string) (string, error) {
	if !m.mounted {
		return "", ErrNotMounted
	}
	clean := filepath.Clean("/" + filepath.ToSlash(rel))
	if clean == "/" {
		return "", errors.Errorf("empty asset path %q", rel)
	}
	return filepath.Join(m.root, filepath.FromSlash(clean)), nil
}

// Videos lists MPEG files directly under dir (relative to the root), sorted.
func (m *Mount) Videos(dir string) ([]string, error) {
	abs := m.root
	if dir != "" && dir != "." {
		var err error
		if abs, err = m.Resolve(dir); err != nil {
			return nil, err
		}
	} else if !m.mounted {
		return nil, ErrNotMounted
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", abs)
	}

	var videos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".mpg" || ext == ".mpeg" {
			videos = append(videos, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(videos)
	return videos, nil
}

// NewS3Client builds a client from static credentials when they are set,
// otherwise from the default AWS credential chain.
func NewS3Client(cfg config.S3) (s3iface.S3API, error) {
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create AWS session")
	}
	return s3.New(sess), nil
}

// Fetch downloads bucket/key to rel under the root. An existing local file of
// the same size is kept. The download goes to a temporary file first so a
// partial object never replaces a playable one.
func (m *Mount) Fetch(ctx context.Context, client s3iface.S3API, bucket, key, rel string) (string, error) {
	dst, err := m.Resolve(rel)
	if err != nil {
		return "", err
	}
	log.Printf("Fetch called | bucket=%s | key=%s | dst=%s", bucket, key, dst)

	head, err := client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", errors.Wrapf(err, "head s3://%s/%s", bucket, key)
	}
	if info, err := os.Stat(dst); err == nil && head.ContentLength != nil && info.Size() == *head.ContentLength {
		log.Printf("Fetch: %s is up to date (%d bytes)", dst, info.Size())
		return dst, nil
	}

	result, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", errors.Wrapf(err, "get s3://%s/%s", bucket, key)
	}
	defer result.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return "", errors.Wrap(err, "create target directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fetch-*")
	if err != nil {
		return "", errors.Wrap(err, "create temporary file")
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, result.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Wrapf(err, "write %s", dst)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", errors.Wrapf(err, "install %s", dst)
	}

	log.Printf("Fetch completed | %s | %d bytes", dst, n)
	return dst, nil
}

// Close unmounts the root. Later Resolve calls fail with ErrNotMounted.
func (m *Mount) Close() error {
	if !m.mounted {
		return nil
	}
	m.mounted = false
	log.Printf("Close: unmounted %s", m.root)
	return nil
}
