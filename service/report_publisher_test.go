package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/config"
	"github.com/ludo-technologies/fixeval/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failKey string
}

func newFakePutter() *fakePutter {
	return &fakePutter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failKey {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+key] = data
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestReportPublisher_Publish(t *testing.T) {
	dir := t.TempDir()
	html := testutil.WriteFile(t, dir, "r.html", []byte("<html></html>"))
	md := testutil.WriteFile(t, dir, "r.md", []byte("# Report"))

	putter := newFakePutter()
	publisher := NewReportPublisher(putter, "evals", "/reports/", nil)

	refs, err := publisher.Publish(context.Background(), sampleModel(), []string{html, md})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://evals/reports/owner/project/r.html",
		"s3://evals/reports/owner/project/r.md",
	}, refs)
	assert.Equal(t, []byte("# Report"), putter.objects["evals/reports/owner/project/r.md"])
	assert.Contains(t, putter.types["reports/owner/project/r.html"], "text/html")
	assert.Equal(t, "text/markdown; charset=utf-8", putter.types["reports/owner/project/r.md"])
}

func TestReportPublisher_StopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.json", []byte("{}"))
	b := testutil.WriteFile(t, dir, "b.json", []byte("{}"))
	c := testutil.WriteFile(t, dir, "c.json", []byte("{}"))

	putter := newFakePutter()
	putter.failKey = "owner/project/b.json"
	publisher := NewReportPublisher(putter, "evals", "", nil)

	refs, err := publisher.Publish(context.Background(), sampleModel(), []string{a, b, c})
	require.Error(t, err)
	assert.Equal(t, []string{"s3://evals/owner/project/a.json"}, refs)
	assert.NotContains(t, putter.objects, "evals/owner/project/c.json")
}

func TestReportPublisher_MissingFile(t *testing.T) {
	publisher := NewReportPublisher(newFakePutter(), "evals", "", nil)
	_, err := publisher.Publish(context.Background(), sampleModel(), []string{filepath.Join(t.TempDir(), "none.json")})
	assert.Error(t, err)
}

func TestReportPublisher_ObjectKey(t *testing.T) {
	publisher := NewReportPublisher(newFakePutter(), "evals", "reports", nil)
	assert.Equal(t, "reports/unknown/r.txt", publisher.ObjectKey(&domain.ReportModel{}, "/x/r.txt"))
	assert.Equal(t, "reports/owner/project/r.txt", publisher.ObjectKey(sampleModel(), "r.txt"))
}

func TestNewS3Publisher_RequiresBucket(t *testing.T) {
	_, err := NewS3Publisher(context.Background(), config.PublishConfig{Enabled: true}, nil)
	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewS3Publisher_CustomEndpoint(t *testing.T) {
	t.Setenv(EnvPublishAccessKey, "access")
	t.Setenv(EnvPublishSecretKey, "secret")

	publisher, err := NewS3Publisher(context.Background(), config.PublishConfig{
		Enabled:  true,
		Bucket:   "evals",
		Endpoint: "http://127.0.0.1:9000",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "evals", publisher.bucket)
}
