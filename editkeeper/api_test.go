package editkeeper

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/scribe/shield"
)

func apiServer(t *testing.T, files map[string]string) (*httptest.Server, string) {
	t.Helper()
	k, dir := newTestKeeper(t, files)
	srv := httptest.NewServer(stackedRoutes(k, 1<<20))
	t.Cleanup(srv.Close)
	return srv, dir
}

func stackedRoutes(k *Keeper, maxBody int64) http.Handler {
	r := chi.NewRouter()
	r.Use(shield.APIStack(maxBody)...)
	r.Mount("/", k.Routes())
	return r
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAPIProposeApply(t *testing.T) {
	srv, _ := apiServer(t, map[string]string{"f.txt": "foo\nbar\n"})

	resp := postJSON(t, srv.URL+"/propose", ProposeRequest{Edits: []EditSpec{
		{Root: "ws", Path: "f.txt", Find: "bar", Replace: "baz"},
	}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("propose status = %d", resp.StatusCode)
	}
	var proposal ProposeResponse
	decodeBody(t, resp, &proposal)
	if !proposal.OK || len(proposal.Ops) != 1 {
		t.Fatalf("proposal = %+v", proposal)
	}
	op := proposal.Ops[0]

	resp = postJSON(t, srv.URL+"/apply", ApplyRequest{
		Root: "ws", Path: "f.txt",
		PatchUnified: op.PatchUnified,
		ExpectedHash: op.ExpectedHash,
		ApprovalID:   op.ApprovalID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status = %d", resp.StatusCode)
	}
	var applied ApplyResponse
	decodeBody(t, resp, &applied)
	if !applied.OK || !applied.Wrote {
		t.Fatalf("applied = %+v", applied)
	}
}

func TestAPIErrorEnvelope(t *testing.T) {
	srv, _ := apiServer(t, map[string]string{"f.txt": "bar\nbar\n"})

	resp := postJSON(t, srv.URL+"/propose", ProposeRequest{Edits: []EditSpec{
		{Root: "ws", Path: "f.txt", Find: "bar", Replace: "baz", Mode: "single"},
	}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	var env errorEnvelope
	decodeBody(t, resp, &env)
	if env.OK {
		t.Fatal("envelope OK must be false")
	}
	if env.Error != string(KindAmbiguousMatch) || env.Matches != 2 {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Hint == "" {
		t.Fatal("envelope must carry a hint")
	}
}

func TestAPIStatusMapping(t *testing.T) {
	srv, _ := apiServer(t, map[string]string{"f.txt": "foo\n"})

	cases := []struct {
		name   string
		body   ProposeRequest
		status int
		kind   Kind
	}{
		{
			"unknown root",
			ProposeRequest{Edits: []EditSpec{{Root: "nope", Path: "f.txt", Find: "x", Replace: "y"}}},
			http.StatusNotFound, KindUnknownRoot,
		},
		{
			"missing fields",
			ProposeRequest{},
			http.StatusBadRequest, KindMissingFields,
		},
		{
			"find not found",
			ProposeRequest{Edits: []EditSpec{{Root: "ws", Path: "f.txt", Find: "absent", Replace: "y"}}},
			http.StatusConflict, KindFindNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/propose", tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			var env errorEnvelope
			decodeBody(t, resp, &env)
			if env.Error != string(tc.kind) {
				t.Fatalf("error = %s, want %s", env.Error, tc.kind)
			}
		})
	}
}

func TestAPIInvalidJSON(t *testing.T) {
	srv, _ := apiServer(t, map[string]string{"f.txt": "foo\n"})

	resp, err := http.Post(srv.URL+"/propose", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var env errorEnvelope
	decodeBody(t, resp, &env)
	if env.Error != string(KindInvalidJSON) {
		t.Fatalf("error = %s", env.Error)
	}
}

func TestAPIPayloadTooLarge(t *testing.T) {
	k, _ := newTestKeeper(t, map[string]string{"f.txt": "foo\n"})
	srv := httptest.NewServer(stackedRoutes(k, 64))
	t.Cleanup(srv.Close)

	big := strings.Repeat("x", 200)
	resp := postJSON(t, srv.URL+"/propose", ProposeRequest{Edits: []EditSpec{
		{Root: "ws", Path: "f.txt", Find: big, Replace: big},
	}})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
	var env errorEnvelope
	decodeBody(t, resp, &env)
	if env.Error != string(KindPayloadTooLarge) {
		t.Fatalf("error = %s", env.Error)
	}
}

func TestAPIReadFile(t *testing.T) {
	srv, _ := apiServer(t, map[string]string{"f.txt": "foo\nbar\n"})

	resp, err := http.Get(srv.URL + "/file?root=ws&path=f.txt")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res ReadResponse
	decodeBody(t, resp, &res)
	if res.Content != "foo\nbar\n" || res.EOL != "LF" {
		t.Fatalf("res = %+v", res)
	}
}

func TestAPIRoots(t *testing.T) {
	srv, _ := apiServer(t, map[string]string{"f.txt": "foo\n"})

	resp, err := http.Get(srv.URL + "/roots")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		OK    bool     `json:"ok"`
		Roots []string `json:"roots"`
	}
	decodeBody(t, resp, &body)
	if !body.OK || len(body.Roots) != 1 || body.Roots[0] != "ws" {
		t.Fatalf("body = %+v", body)
	}
}

func TestAPIBatchApply(t *testing.T) {
	srv, _ := apiServer(t, map[string]string{"a.txt": "one\n", "b.txt": "two\n"})

	propose := func(path, find, replace string) Op {
		t.Helper()
		resp := postJSON(t, srv.URL+"/propose", ProposeRequest{Edits: []EditSpec{
			{Root: "ws", Path: path, Find: find, Replace: replace},
		}})
		var proposal ProposeResponse
		decodeBody(t, resp, &proposal)
		if len(proposal.Ops) != 1 {
			t.Fatalf("ops = %d", len(proposal.Ops))
		}
		return proposal.Ops[0]
	}

	opA := propose("a.txt", "one", "ONE")
	opB := propose("b.txt", "two", "TWO")

	resp := postJSON(t, srv.URL+"/apply/batch", BatchApplyRequest{Ops: []ApplyRequest{
		{Root: "ws", Path: "a.txt", PatchUnified: opA.PatchUnified, ExpectedHash: opA.ExpectedHash, ApprovalID: opA.ApprovalID},
		{Root: "ws", Path: "b.txt", PatchUnified: opB.PatchUnified, ExpectedHash: opB.ExpectedHash, ApprovalID: opB.ApprovalID},
	}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var batch BatchApplyResponse
	decodeBody(t, resp, &batch)
	if !batch.OK || len(batch.Results) != 2 {
		t.Fatalf("batch = %+v", batch)
	}
	for i, r := range batch.Results {
		if r.Status != BatchApplied {
			t.Fatalf("results[%d].Status = %s", i, r.Status)
		}
	}
}
