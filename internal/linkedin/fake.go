package linkedin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

// FakeCall records one invocation made against a FakeClient.
type FakeCall struct {
	Op       string
	Protocol Protocol
	Owner    string
	Target   string // media URL, upload URL or post URN
	Body     []byte
}

// FakeMedia is a canned media response keyed by source URL.
type FakeMedia struct {
	Data        []byte
	ContentType string
}

// FakeClient is an in-memory Client with deterministic responses. The zero
// configuration answers every call successfully: media fetches return a few
// bytes of image/jpeg, uploads register sequential asset URNs and post
// creation returns 201 with a fresh X-RestLi-Id.
//
// Tests script failures through the exported fields. All methods are safe for
// concurrent use; set the fields before the client is shared.
type FakeClient struct {
	mu sync.Mutex

	Media          map[string]FakeMedia
	FetchErrors    map[string]error
	RegisterErr    error
	PutErr         error
	ModernStatuses []int // consumed one per modern call; 201 once exhausted
	LegacyStatuses []int // consumed one per legacy call; 201 once exhausted
	TransportErrs  map[Protocol]int
	PostID         string // fixed header id; generated when empty
	OmitHeaderID   bool
	BodyID         string // JSON body id returned when set
	Reactions      map[string]int
	Comments       map[string]int
	AnalyticsErrs  map[string]error

	calls   []FakeCall
	uploads int
}

// NewFakeClient returns a FakeClient with empty scripts.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Media:         map[string]FakeMedia{},
		FetchErrors:   map[string]error{},
		TransportErrs: map[Protocol]int{},
		Reactions:     map[string]int{},
		Comments:      map[string]int{},
		AnalyticsErrs: map[string]error{},
	}
}

func (f *FakeClient) record(c FakeCall) {
	f.calls = append(f.calls, c)
}

// Calls returns a copy of every recorded call in order.
func (f *FakeClient) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the recorded calls with the given op.
func (f *FakeClient) CallsFor(op string) []FakeCall {
	var out []FakeCall
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// CreateCalls returns the recorded create-post calls for protocol.
func (f *FakeClient) CreateCalls(protocol Protocol) []FakeCall {
	var out []FakeCall
	for _, c := range f.CallsFor("create_post") {
		if c.Protocol == protocol {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeClient) FetchMedia(_ context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "fetch_media", Target: url})
	if err := f.FetchErrors[url]; err != nil {
		return nil, "", err
	}
	if m, ok := f.Media[url]; ok {
		return m.Data, m.ContentType, nil
	}
	return []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg", nil
}

func (f *FakeClient) RegisterUpload(_ context.Context, _ string, ownerURN string, kind domain.AssetKind) (*UploadRegistration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "register_upload", Owner: ownerURN, Target: string(kind)})
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	f.uploads++
	urn := fmt.Sprintf("urn:li:digitalmediaAsset:fake-%d", f.uploads)
	if kind == domain.AssetDocument {
		urn = fmt.Sprintf("urn:li:document:fake-%d", f.uploads)
	}
	return &UploadRegistration{
		UploadURL: fmt.Sprintf("https://upload.fake.invalid/%d", f.uploads),
		AssetURN:  urn,
	}, nil
}

func (f *FakeClient) PutAsset(_ context.Context, _ string, uploadURL string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "put_asset", Target: uploadURL, Body: data})
	return f.PutErr
}

func (f *FakeClient) CreatePost(_ context.Context, _ string, protocol Protocol, body []byte) (*CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "create_post", Protocol: protocol, Body: append([]byte(nil), body...)})

	if n := f.TransportErrs[protocol]; n > 0 {
		f.TransportErrs[protocol] = n - 1
		return nil, errors.New("fake transport error")
	}

	status := http.StatusCreated
	queue := &f.ModernStatuses
	if protocol == ProtocolLegacy {
		queue = &f.LegacyStatuses
	}
	if len(*queue) > 0 {
		status = (*queue)[0]
		*queue = (*queue)[1:]
	}

	resp := &CreateResponse{StatusCode: status}
	if !IsSuccess(status) {
		resp.Body = []byte(fmt.Sprintf(`{"status":%d,"message":"fake failure"}`, status))
		return resp, nil
	}
	if !f.OmitHeaderID {
		resp.RestliID = f.PostID
		if resp.RestliID == "" {
			resp.RestliID = uuid.NewString()
		}
	}
	if f.BodyID != "" {
		resp.Body = []byte(fmt.Sprintf(`{"id":%q}`, f.BodyID))
	}
	return resp, nil
}

func (f *FakeClient) ReactionCount(_ context.Context, _ string, postURN string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "reaction_count", Target: postURN})
	if err := f.AnalyticsErrs[postURN]; err != nil {
		return 0, err
	}
	return f.Reactions[postURN], nil
}

func (f *FakeClient) CommentCount(_ context.Context, _ string, postURN string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(FakeCall{Op: "comment_count", Target: postURN})
	if err := f.AnalyticsErrs[postURN]; err != nil {
		return 0, err
	}
	return f.Comments[postURN], nil
}
