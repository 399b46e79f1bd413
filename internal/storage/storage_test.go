package storage

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    Ref
		wantErr bool
	}{
		{raw: "storage://reimbursements/receipt/a.png", want: Ref{Bucket: "reimbursements", Path: "receipt/a.png"}},
		{raw: " storage://b//nested/x.pdf ", want: Ref{Bucket: "b", Path: "nested/x.pdf"}},
		{raw: "https://example.com/a.png", wantErr: true},
		{raw: "storage://bucket-only", wantErr: true},
		{raw: "storage://bucket/", wantErr: true},
		{raw: "storage:///path", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRef(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRef)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRef_RoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		ref := Ref{
			Bucket: rapid.StringMatching(`[a-z0-9][a-z0-9.-]{2,20}`).Draw(t, "bucket"),
			Path:   rapid.StringMatching(`[a-z]{1,8}(/[a-z0-9_-]{1,12}){0,3}\.[a-z]{2,4}`).Draw(t, "path"),
		}
		got, err := ParseRef(ref.String())
		if err != nil {
			t.Fatalf("ParseRef(%q): %v", ref.String(), err)
		}
		if got != ref {
			t.Fatalf("round trip changed %v into %v", ref, got)
		}
	})
}

func TestService_Upload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := NewMemoryStore()
	svc := NewService(mem, "reimbursements")

	ref, err := svc.Upload(ctx, KindReceipt, "Lunch.JPG", "image/jpeg", strings.NewReader("jpeg"), 4)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "storage://reimbursements/receipt/"))
	require.True(t, strings.HasSuffix(ref, ".jpg"))

	data, ok := mem.Object(ref)
	require.True(t, ok)
	require.Equal(t, "jpeg", string(data))
	require.Equal(t, "image/jpeg", mem.ContentType(ref))

	_, err = svc.Upload(ctx, "avatar", "a.png", "", strings.NewReader("x"), 1)
	require.Error(t, err)
}

func TestService_Remove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("removes in one batch", func(t *testing.T) {
		t.Parallel()
		mem := NewMemoryStore()
		svc := NewService(mem, "reimbursements")
		a, err := svc.Upload(ctx, KindReceipt, "a.png", "", strings.NewReader("a"), 1)
		require.NoError(t, err)
		b, err := svc.Upload(ctx, KindForm, "b.pdf", "", strings.NewReader("b"), 1)
		require.NoError(t, err)

		require.NoError(t, svc.Remove(ctx, []string{a, b}))
		require.Equal(t, 1, mem.RemoveCalls)
		require.Zero(t, mem.Len())
	})

	t.Run("propagates failure", func(t *testing.T) {
		t.Parallel()
		mem := NewMemoryStore()
		mem.FailRemove = errors.New("access denied")
		svc := NewService(mem, "reimbursements")
		err := svc.Remove(ctx, []string{"storage://reimbursements/receipt/a.png"})
		require.ErrorIs(t, err, mem.FailRemove)
	})

	t.Run("rejects bad references before removing", func(t *testing.T) {
		t.Parallel()
		mem := NewMemoryStore()
		svc := NewService(mem, "reimbursements")
		err := svc.Remove(ctx, []string{"storage://reimbursements/a.png", "http://x/y"})
		require.ErrorIs(t, err, ErrInvalidRef)
		require.Zero(t, mem.RemoveCalls)
	})

	t.Run("refuses objects in other buckets", func(t *testing.T) {
		t.Parallel()
		mem := NewMemoryStore()
		require.NoError(t, mem.Put(ctx, "payroll", "secret.pdf", "application/pdf", strings.NewReader("pay"), 3))
		svc := NewService(mem, "reimbursements")

		err := svc.Remove(ctx, []string{"storage://payroll/secret.pdf"})
		require.ErrorIs(t, err, ErrInvalidRef)
		require.Zero(t, mem.RemoveCalls)
		_, ok := mem.Object("storage://payroll/secret.pdf")
		require.True(t, ok)
	})

	t.Run("nothing to remove", func(t *testing.T) {
		t.Parallel()
		var svc *Service
		require.NoError(t, svc.Remove(ctx, nil))
	})
}

func TestService_SignedURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := NewMemoryStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return fixed }
	svc := NewService(mem, "reimbursements")

	ref, err := svc.Upload(ctx, KindPacket, "packet.pdf", "application/pdf", strings.NewReader("%PDF"), 4)
	require.NoError(t, err)

	signed, err := svc.SignedURL(ctx, ref)
	require.NoError(t, err)
	u, err := url.Parse(signed)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	require.Equal(t, fixed.Add(5*time.Minute).Unix(), expires)

	_, err = svc.SignedURL(ctx, "not-a-ref")
	require.ErrorIs(t, err, ErrInvalidRef)

	require.NoError(t, mem.Put(ctx, "payroll", "secret.pdf", "application/pdf", strings.NewReader("pay"), 3))
	signed, err = svc.SignedURL(ctx, "storage://payroll/secret.pdf")
	require.ErrorIs(t, err, ErrInvalidRef)
	require.Empty(t, signed)
}

func TestService_NotConfigured(t *testing.T) {
	t.Parallel()
	svc := NewService(nil, "reimbursements")

	_, err := svc.Upload(context.Background(), KindReceipt, "a.png", "", strings.NewReader("a"), 1)
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.SignedURL(context.Background(), "storage://b/a.png")
	require.ErrorIs(t, err, ErrNotConfigured)
}
