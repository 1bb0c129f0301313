package consumers

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/yungbote/interestgraph-backend/internal/clients/gcp"
	types "github.com/yungbote/interestgraph-backend/internal/domain"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
)

type fakeVision struct {
	result *gcp.AnnotateResult
	err    error
	gotImg []byte
}

func (f *fakeVision) AnnotateImage(ctx context.Context, img []byte) (*gcp.AnnotateResult, error) {
	f.gotImg = img
	return f.result, f.err
}
func (f *fakeVision) Close() error { return nil }

type fakeImageStore struct {
	blob   *gcp.ImageBlob
	err    error
	gotURL string
}

func (f *fakeImageStore) DownloadImage(ctx context.Context, imageURL string) (*gcp.ImageBlob, error) {
	f.gotURL = imageURL
	return f.blob, f.err
}
func (f *fakeImageStore) Close() error { return nil }

type fakeMetaRepo struct {
	photoID  string
	keywords []string
	hashtags []string
	err      error
}

func (f *fakeMetaRepo) UpsertAnalysis(ctx context.Context, photoID string, keywords, hashtags []string) error {
	f.photoID = photoID
	f.keywords = keywords
	f.hashtags = hashtags
	return f.err
}

func (f *fakeMetaRepo) GetByPhotoID(ctx context.Context, photoID string) (*types.PostMetadata, error) {
	return nil, nil
}

func dataURL(content string) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestPhotoUploadDataURL(t *testing.T) {
	store := &recordingStore{}
	vision := &fakeVision{result: &gcp.AnnotateResult{
		Labels:   []string{"dog", "park", "grass"},
		Hashtags: []string{"#dog", "#park"},
	}}
	meta := &fakeMetaRepo{}
	h := &photoUploadHandler{
		log:    testLogger(t),
		store:  store,
		vision: vision,
		meta:   meta,
	}

	msg := []byte(`{"userId":"u1","photoId":"photo1","imageUrl":"` + dataURL("jpegbytes") + `"}`)
	if err := h.handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if string(vision.gotImg) != "jpegbytes" {
		t.Fatalf("vision received %q, want decoded data url bytes", vision.gotImg)
	}

	want := []string{"UpsertInterestBatch", "RecordInteraction", "LinkPost"}
	if !sameOps(store.ops(), want) {
		t.Fatalf("ops = %v, want %v", store.ops(), want)
	}
	batch := store.calls[0]
	if batch.value != 2.0 || len(batch.tags) != 3 {
		t.Fatalf("batch = %+v, want 3 tags at delta 2.0", batch)
	}
	inter := store.calls[1]
	if inter.postID != "photo1" || inter.typ != types.InteractionPost || inter.value != 2.0 {
		t.Fatalf("interaction = %+v, want photo1 POST 2.0", inter)
	}
	link := store.calls[2]
	if link.postID != "photo1" || len(link.tags) != 3 {
		t.Fatalf("link = %+v, want photo1 with 3 tags", link)
	}

	if meta.photoID != "photo1" || len(meta.keywords) != 3 || len(meta.hashtags) != 2 {
		t.Fatalf("metadata upsert = %+v", meta)
	}
}

func TestPhotoUploadStorageURL(t *testing.T) {
	store := &recordingStore{}
	vision := &fakeVision{result: &gcp.AnnotateResult{Labels: []string{"beach"}}}
	images := &fakeImageStore{blob: &gcp.ImageBlob{Data: []byte("stored"), ContentType: "image/png"}}
	h := &photoUploadHandler{
		log:    testLogger(t),
		store:  store,
		vision: vision,
		images: images,
	}

	msg := []byte(`{"userId":"u1","photoId":"photo2","imageUrl":"https://storage.example.com/bucket/photo2.png"}`)
	if err := h.handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if images.gotURL != "https://storage.example.com/bucket/photo2.png" {
		t.Fatalf("image store received %q", images.gotURL)
	}
	if string(vision.gotImg) != "stored" {
		t.Fatalf("vision received %q, want downloaded bytes", vision.gotImg)
	}
}

func TestPhotoUploadNoLabelsIsNoop(t *testing.T) {
	store := &recordingStore{}
	vision := &fakeVision{result: &gcp.AnnotateResult{Labels: []string{}}}
	h := &photoUploadHandler{log: testLogger(t), store: store, vision: vision}

	msg := []byte(`{"userId":"u1","photoId":"photo3","imageUrl":"` + dataURL("x") + `"}`)
	if err := h.handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("store touched for label-less photo: %v", store.ops())
	}
}

func TestPhotoUploadInvalidEvents(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing user":   `{"photoId":"p","imageUrl":"` + dataURL("x") + `"}`,
		"missing photo":  `{"userId":"u","imageUrl":"` + dataURL("x") + `"}`,
		"missing url":    `{"userId":"u","photoId":"p"}`,
		"bad data url":   `{"userId":"u","photoId":"p","imageUrl":"data:image/jpeg;base64"}`,
		"bad base64":     `{"userId":"u","photoId":"p","imageUrl":"data:image/jpeg;base64,%%%"}`,
		"no image store": `{"userId":"u","photoId":"p","imageUrl":"https://example.com/p.jpg"}`,
	}
	for name, msg := range cases {
		store := &recordingStore{}
		h := &photoUploadHandler{
			log:    testLogger(t),
			store:  store,
			vision: &fakeVision{result: &gcp.AnnotateResult{Labels: []string{"x"}}},
		}
		err := h.handle(context.Background(), []byte(msg))
		if !errs.IsValidation(err) {
			t.Fatalf("%s: got %v, want validation error", name, err)
		}
		if len(store.calls) != 0 {
			t.Fatalf("%s: store touched on invalid event: %v", name, store.ops())
		}
	}
}

// A document-store failure fails the message like any other collaborator
// failure; the graph writes before it still land.
func TestPhotoUploadMetadataFailurePropagates(t *testing.T) {
	store := &recordingStore{}
	vision := &fakeVision{result: &gcp.AnnotateResult{Labels: []string{"dog"}}}
	meta := &fakeMetaRepo{err: context.DeadlineExceeded}
	h := &photoUploadHandler{log: testLogger(t), store: store, vision: vision, meta: meta}

	msg := []byte(`{"userId":"u1","photoId":"photo4","imageUrl":"` + dataURL("x") + `"}`)
	err := h.handle(context.Background(), msg)
	if !errs.IsKind(err, errs.KindTransientStore) {
		t.Fatalf("got %v, want transient_store error", err)
	}
	want := []string{"UpsertInterestBatch", "RecordInteraction", "LinkPost"}
	if !sameOps(store.ops(), want) {
		t.Fatalf("ops = %v, want %v", store.ops(), want)
	}
}
