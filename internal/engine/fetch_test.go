package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bianoble/mvnfetch/internal/artifact"
	"github.com/bianoble/mvnfetch/internal/source"
)

const abcSHA1 = "A9993E364706816ABA3E25717850C26C9CD0D89D"

// memConnector serves files keyed by host+path and records every request.
type memConnector struct {
	mu    sync.Mutex
	files map[string]string
	down  map[string]bool
	calls []string
}

func newMemConnector() *memConnector {
	return &memConnector{files: make(map[string]string), down: make(map[string]bool)}
}

func (m *memConnector) put(rawURL, body string) {
	u, _ := url.Parse(rawURL)
	m.files[u.Host+u.Path] = body
}

func (m *memConnector) Open(ctx context.Context, u *url.URL) (*source.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, u.String())

	if m.down[u.Host] {
		return nil, &source.ConnectionError{URL: u.String(), Err: errors.New("connection refused")}
	}
	body, ok := m.files[u.Host+u.Path]
	if !ok {
		return &source.Response{URL: u, StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	return &source.Response{URL: u, StatusCode: http.StatusOK, ContentLength: int64(len(body)), Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (m *memConnector) requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func remote(t *testing.T, name, raw string) artifact.Repository {
	t.Helper()
	r, err := artifact.NewRemote(name, raw)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func newTestDownloader(t *testing.T, conn source.Connector, opts Options) *Downloader {
	t.Helper()
	d, err := NewDownloader(conn, t.TempDir(), opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDownloader: %v", err)
	}
	return d
}

func TestFetchFromFirstRepository(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-a.test/maven2/com/example/lib/1.0/lib-1.0.jar", "abc")
	d := newTestDownloader(t, conn, Options{})

	a := artifact.New("com.example", "lib", "1.0")
	a.SHA1 = strings.ToLower(abcSHA1)
	res, err := d.Fetch(context.Background(), a, []artifact.Repository{remote(t, "a", "https://repo-a.test/maven2/")})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := filepath.Join(d.Cache().Path(), "com", "example", "lib", "1.0", "lib-1.0.jar")
	if res.Path != want {
		t.Errorf("path = %s, want %s", res.Path, want)
	}
	if !res.Downloaded || res.Cached {
		t.Errorf("downloaded=%v cached=%v", res.Downloaded, res.Cached)
	}
	if res.Repository != "a" || res.Size != 3 {
		t.Errorf("repository=%q size=%d", res.Repository, res.Size)
	}
	data, _ := os.ReadFile(res.Path)
	if string(data) != "abc" {
		t.Errorf("content = %q", data)
	}
}

func TestFetchIsIdempotent(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-a.test/maven2/com/example/lib/1.0/lib-1.0.jar", "abc")
	d := newTestDownloader(t, conn, Options{})
	repos := []artifact.Repository{remote(t, "a", "https://repo-a.test/maven2/")}

	if _, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"), repos); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	before := len(conn.requests())

	res, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"), repos)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !res.Cached || res.Downloaded {
		t.Errorf("second fetch should be a cache hit: %+v", res)
	}
	if after := len(conn.requests()); after != before {
		t.Errorf("second fetch made %d requests", after-before)
	}
}

func TestFetchRepositoryPriority(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-b.test/com/example/lib/1.0/lib-1.0.jar", "from b")
	conn.put("https://repo-c.test/com/example/lib/1.0/lib-1.0.jar", "from c")
	d := newTestDownloader(t, conn, Options{})

	repos := []artifact.Repository{
		remote(t, "a", "https://repo-a.test/"),
		remote(t, "b", "https://repo-b.test/"),
		remote(t, "c", "https://repo-c.test/"),
	}
	res, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"), repos)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Repository != "b" {
		t.Errorf("repository = %q, want b", res.Repository)
	}

	want := []string{
		"https://repo-a.test/com/example/lib/1.0/lib-1.0.jar",
		"https://repo-a.test/com/example/lib/1.0/maven-metadata.xml",
		"https://repo-b.test/com/example/lib/1.0/lib-1.0.jar",
	}
	got := conn.requests()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("requests:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestFetchSkipsUnreachableRepository(t *testing.T) {
	conn := newMemConnector()
	conn.down["repo-a.test"] = true
	conn.put("https://repo-b.test/com/example/lib/1.0/lib-1.0.jar", "abc")
	d := newTestDownloader(t, conn, Options{})

	repos := []artifact.Repository{
		remote(t, "a", "https://repo-a.test/"),
		remote(t, "b", "https://repo-b.test/"),
	}
	res, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"), repos)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Repository != "b" {
		t.Errorf("repository = %q", res.Repository)
	}
	// A transport failure skips the repository without asking for metadata.
	for _, c := range conn.requests() {
		if strings.HasPrefix(c, "https://repo-a.test/") && strings.HasSuffix(c, "maven-metadata.xml") {
			t.Errorf("unexpected metadata probe on unreachable repository: %s", c)
		}
	}
}

func TestFetchExhausted(t *testing.T) {
	conn := newMemConnector()
	d := newTestDownloader(t, conn, Options{})

	repos := []artifact.Repository{
		remote(t, "a", "https://repo-a.test/"),
		remote(t, "b", "https://repo-b.test/"),
	}
	_, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"), repos)
	var nf *ArtifactNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ArtifactNotFoundError, got %v", err)
	}
	if nf.Tried != 2 {
		t.Errorf("tried = %d", nf.Tried)
	}
}

func TestFetchNoRepositories(t *testing.T) {
	d := newTestDownloader(t, newMemConnector(), Options{})
	_, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"), nil)
	var nf *ArtifactNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ArtifactNotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "no url and no repositories") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestFetchDirectURLIgnoresRepositories(t *testing.T) {
	conn := newMemConnector()
	conn.down["repo-a.test"] = true
	conn.put("https://downloads.example.test/lib.jar", "abc")
	d := newTestDownloader(t, conn, Options{})

	a := artifact.New("com.example", "lib", "1.0")
	a.SourceURL, _ = url.Parse("https://downloads.example.test/lib.jar")
	res, err := d.Fetch(context.Background(), a, []artifact.Repository{remote(t, "a", "https://repo-a.test/")})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Repository != DirectRepository {
		t.Errorf("repository = %q", res.Repository)
	}
	got := conn.requests()
	if len(got) != 1 || got[0] != "https://downloads.example.test/lib.jar" {
		t.Errorf("requests = %v", got)
	}
}

func TestFetchDirectURLFailureDoesNotFallBack(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-a.test/com/example/lib/1.0/lib-1.0.jar", "abc")
	d := newTestDownloader(t, conn, Options{})

	a := artifact.New("com.example", "lib", "1.0")
	a.SourceURL, _ = url.Parse("https://downloads.example.test/missing.jar")
	_, err := d.Fetch(context.Background(), a, []artifact.Repository{remote(t, "a", "https://repo-a.test/")})
	if !source.IsNotFound(err) {
		t.Fatalf("expected status-level miss, got %v", err)
	}
	if n := len(conn.requests()); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

const snapshotMetadata = `<?xml version="1.0" encoding="UTF-8"?>
<metadata modelVersion="1.1.0">
  <groupId>com.example</groupId>
  <artifactId>lib</artifactId>
  <version>1.0-SNAPSHOT</version>
  <versioning>
    <lastUpdated>20240101120000</lastUpdated>
    <snapshotVersions>
      <snapshotVersion>
        <classifier>sources</classifier>
        <extension>jar</extension>
        <value>1.0-20240101.110000-2</value>
      </snapshotVersion>
      <snapshotVersion>
        <extension>pom</extension>
        <value>1.0-20240101.120000-3</value>
      </snapshotVersion>
      <snapshotVersion>
        <extension>jar</extension>
        <value>1.0-20240101.120000-3</value>
      </snapshotVersion>
    </snapshotVersions>
  </versioning>
</metadata>
`

func TestFetchSnapshotFromMetadata(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://snap.test/com/example/lib/1.0-SNAPSHOT/maven-metadata.xml", snapshotMetadata)
	conn.put("https://snap.test/com/example/lib/1.0-SNAPSHOT/lib-1.0-20240101.120000-3.jar", "abc")
	d := newTestDownloader(t, conn, Options{})

	a := artifact.New("com.example", "lib", "1.0-SNAPSHOT")
	a.SHA1 = abcSHA1
	res, err := d.Fetch(context.Background(), a, []artifact.Repository{remote(t, "snap", "https://snap.test/")})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if a.Name() != "lib-1.0-20240101.120000-3" || res.Name != a.Name() {
		t.Errorf("name = %q (result %q)", a.Name(), res.Name)
	}
	want := filepath.Join(d.Cache().Path(), "com", "example", "lib", "1.0-SNAPSHOT", "lib-1.0-20240101.120000-3.jar")
	if res.Path != want {
		t.Errorf("path = %s, want %s", res.Path, want)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(want), "maven-metadata.xml")); err != nil {
		t.Errorf("metadata not cached: %v", err)
	}

	// The resolved name is a cache hit on the next call.
	before := len(conn.requests())
	res, err = d.Fetch(context.Background(), a, []artifact.Repository{remote(t, "snap", "https://snap.test/")})
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !res.Cached || len(conn.requests()) != before {
		t.Errorf("resolved snapshot should be served from cache")
	}
}

func TestFetchSnapshotWithoutMainJarIsMiss(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://snap.test/com/example/lib/1.0-SNAPSHOT/maven-metadata.xml", `<metadata>
  <groupId>com.example</groupId>
  <artifactId>lib</artifactId>
  <version>1.0-SNAPSHOT</version>
  <versioning><snapshotVersions>
    <snapshotVersion><classifier>sources</classifier><extension>jar</extension><value>1.0-1</value></snapshotVersion>
  </snapshotVersions></versioning>
</metadata>`)
	conn.put("https://other.test/com/example/lib/1.0-SNAPSHOT/lib-1.0-SNAPSHOT.jar", "abc")
	d := newTestDownloader(t, conn, Options{})

	a := artifact.New("com.example", "lib", "1.0-SNAPSHOT")
	res, err := d.Fetch(context.Background(), a, []artifact.Repository{
		remote(t, "snap", "https://snap.test/"),
		remote(t, "other", "https://other.test/"),
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Repository != "other" || a.Name() != "lib-1.0-SNAPSHOT" {
		t.Errorf("repository=%q name=%q", res.Repository, a.Name())
	}
}

func TestFetchInvalidMetadataSkipsRepository(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://snap.test/com/example/lib/1.0-SNAPSHOT/maven-metadata.xml", "<metadata><groupId>com.example</groupId></metadata>")
	d := newTestDownloader(t, conn, Options{})

	_, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0-SNAPSHOT"),
		[]artifact.Repository{remote(t, "snap", "https://snap.test/")})
	var nf *ArtifactNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ArtifactNotFoundError, got %v", err)
	}
}

func TestFetchHashMismatchLeavesFile(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-a.test/com/example/lib/1.0/lib-1.0.jar", "tampered")
	d := newTestDownloader(t, conn, Options{})

	a := artifact.New("com.example", "lib", "1.0")
	a.SHA1 = abcSHA1
	res, err := d.Fetch(context.Background(), a, []artifact.Repository{remote(t, "a", "https://repo-a.test/")})
	var hm *HashMismatchError
	if !errors.As(err, &hm) {
		t.Fatalf("expected HashMismatchError, got %v", err)
	}
	if hm.Expected != abcSHA1 || hm.Actual == abcSHA1 {
		t.Errorf("expected=%s actual=%s", hm.Expected, hm.Actual)
	}
	if !strings.Contains(err.Error(), "lib-1.0.jar") {
		t.Errorf("message should name the file: %v", err)
	}
	if _, statErr := os.Stat(res.Path); statErr != nil {
		t.Errorf("file should be left on disk: %v", statErr)
	}

	// A cached file is verified too.
	if _, err := d.Fetch(context.Background(), a, nil); !errors.As(err, &hm) {
		t.Errorf("cache hit should still be verified, got %v", err)
	}
}

func TestFetchSkipHash(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-a.test/com/example/lib/1.0/lib-1.0.jar", "tampered")
	d := newTestDownloader(t, conn, Options{SkipHash: true})

	a := artifact.New("com.example", "lib", "1.0")
	a.SHA1 = abcSHA1
	if _, err := d.Fetch(context.Background(), a, []artifact.Repository{remote(t, "a", "https://repo-a.test/")}); err != nil {
		t.Fatalf("Fetch with SkipHash: %v", err)
	}
}

func TestFetchEmptyDigestIsNotChecked(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-a.test/com/example/lib/1.0/lib-1.0.jar", "anything")
	d := newTestDownloader(t, conn, Options{})

	if _, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"),
		[]artifact.Repository{remote(t, "a", "https://repo-a.test/")}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestFetchForceRedownloads(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-a.test/com/example/lib/1.0/lib-1.0.jar", "new")
	d := newTestDownloader(t, conn, Options{Force: true})

	path := filepath.Join(d.Cache().Path(), "com", "example", "lib", "1.0", "lib-1.0.jar")
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte("old"), 0644)

	res, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"),
		[]artifact.Repository{remote(t, "a", "https://repo-a.test/")})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.Downloaded || res.Cached {
		t.Errorf("force should download: %+v", res)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("content = %q", data)
	}
}

func TestFetchFlatLayout(t *testing.T) {
	conn := newMemConnector()
	conn.put("https://repo-a.test/com/example/lib/1.0/lib-1.0.jar", "abc")
	d := newTestDownloader(t, conn, Options{Layout: artifact.LayoutFlat})

	res, err := d.Fetch(context.Background(), artifact.New("com.example", "lib", "1.0"),
		[]artifact.Repository{remote(t, "a", "https://repo-a.test/")})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if want := filepath.Join(d.Cache().Path(), "lib-1.0.jar"); res.Path != want {
		t.Errorf("path = %s, want %s", res.Path, want)
	}
}

func TestFetchLocalRepository(t *testing.T) {
	repoDir := t.TempDir()
	jar := filepath.Join(repoDir, "com", "example", "lib", "1.0", "lib-1.0.jar")
	os.MkdirAll(filepath.Dir(jar), 0755)
	os.WriteFile(jar, []byte("abc"), 0644)

	local, err := artifact.NewLocal("local", repoDir)
	if err != nil {
		t.Fatal(err)
	}
	d := newTestDownloader(t, source.NewDefaultRegistry(nil), Options{})

	a := artifact.New("com.example", "lib", "1.0")
	a.SHA1 = abcSHA1
	res, err := d.Fetch(context.Background(), a, []artifact.Repository{local})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Repository != "local" {
		t.Errorf("repository = %q", res.Repository)
	}
	if res.Path == jar {
		t.Error("jar should be copied into the cache")
	}
}

func TestFetchCancelledContext(t *testing.T) {
	conn := newMemConnector()
	d := newTestDownloader(t, conn, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Fetch(ctx, artifact.New("com.example", "lib", "1.0"), []artifact.Repository{remote(t, "a", "https://repo-a.test/")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetchNilArtifact(t *testing.T) {
	d := newTestDownloader(t, newMemConnector(), Options{})
	var ae *artifact.ArgumentError
	if _, err := d.Fetch(context.Background(), nil, nil); !errors.As(err, &ae) {
		t.Errorf("expected ArgumentError, got %v", err)
	}
}

func TestNewDownloaderRequiresConnector(t *testing.T) {
	if _, err := NewDownloader(nil, t.TempDir(), Options{}, zerolog.Nop()); err == nil {
		t.Error("expected error for nil connector")
	}
}
