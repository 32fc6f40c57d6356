package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckImage(t *testing.T) {
	assert.NoError(t, CheckImage("photo.JPG", 1024))
	assert.ErrorIs(t, CheckImage("notes.txt", 10), ErrUnsupportedType)
	assert.ErrorIs(t, CheckImage("big.png", MaxImageSize+1), ErrTooLarge)
}

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	require.NoError(t, err)

	ref, err := s.Save(context.Background(), "products", "my lamp.png", bytes.NewReader([]byte("png-bytes")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ref, "/uploads/products/"))
	assert.True(t, strings.HasSuffix(ref, "_my_lamp.png"))

	data, err := os.ReadFile(filepath.Join(dir, "products", filepath.Base(ref)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalStorageRejectsOversized(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	big := bytes.Repeat([]byte{1}, MaxImageSize+10)
	_, err = s.Save(context.Background(), "products", "huge.png", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(filepath.Join(s.Dir(), "products"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorageRejectsExtension(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "products", "script.sh", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLocalStorageDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Save(context.Background(), "exchange-items", "bike.jpg", strings.NewReader("jpg"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), ref))
	_, err = os.Stat(filepath.Join(s.Dir(), "exchange-items", filepath.Base(ref)))
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, s.Delete(context.Background(), ref))
}

func TestLocalStorageDeleteStaysInsideDir(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(context.Background(), "/uploads/../../etc/passwd"), ErrForeignRef)
	assert.ErrorIs(t, s.Delete(context.Background(), "https://cdn.example.com/a.png"), ErrForeignRef)
}

func TestPublicIDFromURL(t *testing.T) {
	id, ok := publicIDFromURL("https://res.cloudinary.com/demo/image/upload/v1712345678/careshare/products/lamp_x1y2.png")
	require.True(t, ok)
	assert.Equal(t, "careshare/products/lamp_x1y2", id)

	id, ok = publicIDFromURL("https://res.cloudinary.com/demo/image/upload/products/vase.jpg")
	require.True(t, ok)
	assert.Equal(t, "products/vase", id)

	_, ok = publicIDFromURL("/uploads/products/lamp.png")
	assert.False(t, ok)
}
