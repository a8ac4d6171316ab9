package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/linkedin"
)

func TestUpload_FetchedImage(t *testing.T) {
	fc := linkedin.NewFakeClient()
	fc.Media["https://cdn.example.com/a.png"] = linkedin.FakeMedia{Data: []byte("png"), ContentType: "image/png; charset=binary"}
	sl := &recordingSleep{}
	u := &Uploader{Client: fc, SettleDelay: 5 * time.Second, Sleep: sl.Sleep}

	ref, err := u.Upload(context.Background(), "tok", "urn:li:organization:42", "https://cdn.example.com/a.png", domain.AssetImage)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref.ContentType != "image/png" || ref.PlatformURN == "" || ref.SourceURL != "https://cdn.example.com/a.png" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	reg := fc.CallsFor("register_upload")
	if len(reg) != 1 || reg[0].Owner != "urn:li:organization:42" {
		t.Fatalf("register must carry the explicit owner urn: %+v", reg)
	}
	if puts := fc.CallsFor("put_asset"); len(puts) != 1 || string(puts[0].Body) != "png" {
		t.Fatalf("expected one PUT with source bytes, got %+v", puts)
	}
	if sl.Count() != 1 || sl.waits[0] != 5*time.Second {
		t.Fatalf("image upload must wait the settling delay, got %v", sl.waits)
	}
}

func TestUpload_DataURI(t *testing.T) {
	fc := linkedin.NewFakeClient()
	sl := &recordingSleep{}
	u := &Uploader{Client: fc, Sleep: sl.Sleep}

	raw := []byte("gif-bytes")
	uri := "data:image/gif;base64," + base64.StdEncoding.EncodeToString(raw)
	ref, err := u.Upload(context.Background(), "tok", "urn:li:person:1", uri, domain.AssetImage)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref.ContentType != "image/gif" {
		t.Fatalf("expected declared content type, got %q", ref.ContentType)
	}
	if len(fc.CallsFor("fetch_media")) != 0 {
		t.Fatalf("data uri must not be fetched")
	}
	if puts := fc.CallsFor("put_asset"); string(puts[0].Body) != string(raw) {
		t.Fatalf("decoded bytes mismatch: %q", puts[0].Body)
	}
	if sl.Count() != 0 {
		t.Fatalf("zero settle delay must not sleep")
	}
}

func TestUpload_DocumentSkipsSettle(t *testing.T) {
	fc := linkedin.NewFakeClient()
	fc.Media["https://cdn.example.com/deck.pdf"] = linkedin.FakeMedia{Data: []byte("%PDF"), ContentType: ""}
	sl := &recordingSleep{}
	u := &Uploader{Client: fc, SettleDelay: time.Second, Sleep: sl.Sleep}

	ref, err := u.Upload(context.Background(), "tok", "urn:li:person:1", "https://cdn.example.com/deck.pdf", domain.AssetDocument)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ref.ContentType != defaultDocumentType || ref.Kind != domain.AssetDocument {
		t.Fatalf("unexpected document ref: %+v", ref)
	}
	if sl.Count() != 0 {
		t.Fatalf("documents must not wait the image settling delay")
	}
}

func TestUpload_ErrorReasons(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		setup  func(*linkedin.FakeClient)
		reason UploadReason
	}{
		{"fetch", "https://cdn.example.com/x.jpg", func(f *linkedin.FakeClient) { f.FetchErrors["https://cdn.example.com/x.jpg"] = errors.New("404") }, UploadFetchFailed},
		{"oversized", "https://cdn.example.com/x.jpg", func(f *linkedin.FakeClient) { f.FetchErrors["https://cdn.example.com/x.jpg"] = linkedin.ErrBodyTooLarge }, UploadFetchFailed},
		{"bad data uri", "data:image/png;base64,@@@", func(*linkedin.FakeClient) {}, UploadFetchFailed},
		{"bad url", "not a url", func(*linkedin.FakeClient) {}, UploadFetchFailed},
		{"register", "https://cdn.example.com/x.jpg", func(f *linkedin.FakeClient) { f.RegisterErr = errors.New("denied") }, UploadRegisterFailed},
		{"put", "https://cdn.example.com/x.jpg", func(f *linkedin.FakeClient) { f.PutErr = errors.New("reset") }, UploadPutFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fc := linkedin.NewFakeClient()
			tc.setup(fc)
			u := &Uploader{Client: fc}
			_, err := u.Upload(context.Background(), "tok", "urn:li:person:1", tc.url, domain.AssetImage)
			var ue *UploadError
			if !errors.As(err, &ue) || ue.Reason != tc.reason {
				t.Fatalf("expected UploadError{%s}, got %v", tc.reason, err)
			}
		})
	}
}

func TestUpload_CanceledSettleIsInterrupted(t *testing.T) {
	fc := linkedin.NewFakeClient()
	fc.Media["https://cdn.example.com/a.jpg"] = linkedin.FakeMedia{Data: []byte("jpg"), ContentType: "image/jpeg"}
	u := &Uploader{Client: fc, SettleDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := u.Upload(ctx, "tok", "urn:li:person:1", "https://cdn.example.com/a.jpg", domain.AssetImage)

	var ue *UploadError
	if !errors.As(err, &ue) || ue.Reason != UploadSettleInterrupted {
		t.Fatalf("expected UploadError{%s}, got %v", UploadSettleInterrupted, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause must be the cancellation, got %v", err)
	}
	if len(fc.CallsFor("put_asset")) != 1 {
		t.Fatal("the PUT itself succeeded before the wait")
	}
}

func TestUploadAll_PartialFailureKeepsOrder(t *testing.T) {
	fc := linkedin.NewFakeClient()
	fc.FetchErrors["https://cdn.example.com/2.jpg"] = errors.New("gone")
	sl := &recordingSleep{}
	u := &Uploader{Client: fc, SettleDelay: time.Second, Workers: 3, Sleep: sl.Sleep}

	assets := []domain.DraftAsset{
		{Type: domain.AssetImage, URL: "https://cdn.example.com/1.jpg"},
		{Type: domain.AssetImage, URL: "https://cdn.example.com/2.jpg"},
		{Type: domain.AssetImage, URL: "https://cdn.example.com/3.jpg"},
	}
	refs, errs := u.UploadAll(context.Background(), "tok", "urn:li:person:1", assets)
	if len(errs) != 1 {
		t.Fatalf("expected one failure, got %v", errs)
	}
	if len(refs) != 2 || refs[0].SourceURL != assets[0].URL || refs[1].SourceURL != assets[2].URL {
		t.Fatalf("surviving refs must keep draft order: %+v", refs)
	}
	if sl.Count() != 2 {
		t.Fatalf("expected one settle wait per uploaded image, got %d", sl.Count())
	}
}

func TestUploadAll_Empty(t *testing.T) {
	u := &Uploader{Client: linkedin.NewFakeClient()}
	refs, errs := u.UploadAll(context.Background(), "tok", "urn:li:person:1", nil)
	if refs != nil || errs != nil {
		t.Fatalf("expected nil results, got %v %v", refs, errs)
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, ct, err := decodeDataURI("data:,hello%20world")
	if err != nil || string(data) != "hello world" || ct != "" {
		t.Fatalf("plain data uri: %q %q %v", data, ct, err)
	}
	unpadded := base64.RawStdEncoding.EncodeToString([]byte("ab"))
	data, ct, err = decodeDataURI("data:IMAGE/JPEG;base64," + unpadded)
	if err != nil || string(data) != "ab" || ct != "image/jpeg" {
		t.Fatalf("unpadded base64: %q %q %v", data, ct, err)
	}
	if _, _, err := decodeDataURI("data:image/png;base64"); err == nil {
		t.Fatalf("expected error for missing comma")
	}
	if got := redactDataURI("data:image/png;base64,AAAA"); got != "data:image/png;base64,…" {
		t.Fatalf("redact: %q", got)
	}
}

func TestSleepCtx_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
}
