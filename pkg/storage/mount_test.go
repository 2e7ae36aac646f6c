package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

// fakeS3 serves one object from memory.
type fakeS3 struct {
	s3iface.S3API
	body   []byte
	getErr error
	gets   int
}

func (f *fakeS3) HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, _ ...request.Option) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(f.body)))}, nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestMountRootMissing(t *testing.T) {
	_, err := MountRoot(filepath.Join(t.TempDir(), "romfs"))
	if errors.Cause(err) != ErrNotMounted {
		t.Fatalf("err = %v, want ErrNotMounted", err)
	}
}

func TestMountRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := MountRoot(path); errors.Cause(err) != ErrNotMounted {
		t.Fatalf("err = %v, want ErrNotMounted", err)
	}
}

func TestResolveStaysInRoot(t *testing.T) {
	m, err := MountRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]string{
		"video.mpg":        "video.mpg",
		"clips/intro.mpg":  "clips/intro.mpg",
		"../../etc/passwd": "etc/passwd",
		"/abs/video.mpg":   "abs/video.mpg",
	}
	for rel, want := range cases {
		got, err := m.Resolve(rel)
		if err != nil {
			t.Errorf("Resolve(%q): %v", rel, err)
			continue
		}
		if got != filepath.Join(m.Root(), filepath.FromSlash(want)) {
			t.Errorf("Resolve(%q) = %q", rel, got)
		}
	}

	if _, err := m.Resolve(""); err == nil {
		t.Error("empty path must fail")
	}
}

func TestCloseUnmounts(t *testing.T) {
	m, err := MountRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := m.Resolve("video.mpg"); err != ErrNotMounted {
		t.Errorf("Resolve after Close = %v, want ErrNotMounted", err)
	}
}

func TestVideos(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.mpg", "a.MPEG", "notes.txt", "c.mp4"} {
		if err := os.WriteFile(filepath.Join(root, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(root, "sub.mpg"), 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := MountRoot(root)
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Videos("")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.MPEG", "b.mpg"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Videos = %v, want %v", got, want)
	}
}

func TestFetch(t *testing.T) {
	m, err := MountRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := &fakeS3{body: []byte("mpeg bytes")}

	path, err := m.Fetch(context.Background(), client, "frames", "loops/video.mpg", "videos/video.mpg")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mpeg bytes" {
		t.Errorf("content = %q", data)
	}

	// same size: no second download
	if _, err := m.Fetch(context.Background(), client, "frames", "loops/video.mpg", "videos/video.mpg"); err != nil {
		t.Fatal(err)
	}
	if client.gets != 1 {
		t.Errorf("GetObject called %d times, want 1", client.gets)
	}
}

func TestFetchFailureKeepsExistingFile(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "video.mpg")
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := MountRoot(root)
	if err != nil {
		t.Fatal(err)
	}

	errDenied := errors.New("access denied")
	client := &fakeS3{body: []byte("newer and longer"), getErr: errDenied}
	if _, err := m.Fetch(context.Background(), client, "frames", "video.mpg", "video.mpg"); errors.Cause(err) != errDenied {
		t.Fatalf("err = %v, want cause %v", err, errDenied)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "old" {
		t.Errorf("existing file changed to %q", data)
	}
}
