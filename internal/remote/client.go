package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"habitsync/internal/habit"
)

const docSuffix = ".json"

// Client is the owner-scoped habit document store. Each habit is one blob at
// <owner>/habits/<id>.json, JSON encoded and optionally sealed by a Cipher.
type Client struct {
	backend Backend
	cipher  Cipher
	newID   func() string
}

var _ habit.RemoteStore = (*Client)(nil)

// NewClient creates a client over backend. A nil cipher stores plain JSON.
func NewClient(backend Backend, cipher Cipher) *Client {
	return &Client{
		backend: backend,
		cipher:  cipher,
		newID:   NewDocumentID,
	}
}

// NewDocumentID returns a fresh opaque document identifier: 32 lowercase hex
// characters, so it can never be mistaken for a temporary ID.
func NewDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Name returns the backend name.
func (c *Client) Name() string { return c.backend.Name() }

// Ping checks that the backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}

func habitsPrefix(owner string) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", habit.ErrAuthRequired
	}
	escaped := url.PathEscape(owner)
	if escaped == "." || escaped == ".." {
		return "", fmt.Errorf("invalid owner %q", owner)
	}
	return escaped + "/habits/", nil
}

func docKey(owner, id string) (string, error) {
	prefix, err := habitsPrefix(owner)
	if err != nil {
		return "", err
	}
	if id == "" || strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return prefix + id + docSuffix, nil
}

func (c *Client) Create(ctx context.Context, owner string, doc habit.Document) (string, error) {
	id := c.newID()
	key, err := docKey(owner, id)
	if err != nil {
		return "", err
	}
	if err := c.write(ctx, key, doc); err != nil {
		return "", err
	}
	return id, nil
}

// List returns every document of owner. A document deleted between listing
// and fetching is skipped.
func (c *Client) List(ctx context.Context, owner string) ([]habit.RemoteHabit, error) {
	prefix, err := habitsPrefix(owner)
	if err != nil {
		return nil, err
	}

	keys, err := c.backend.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	var out []habit.RemoteHabit
	for _, key := range keys {
		if !strings.HasSuffix(key, docSuffix) {
			continue
		}
		doc, err := c.read(ctx, key)
		if errors.Is(err, ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, habit.RemoteHabit{
			ID:       strings.TrimSuffix(path.Base(key), docSuffix),
			Document: doc,
		})
	}
	return out, nil
}

// Update overwrites an existing document. It fails with habit.ErrNotFound
// when the document is gone, so the caller can decide to re-create it.
func (c *Client) Update(ctx context.Context, owner, id string, doc habit.Document) error {
	key, err := docKey(owner, id)
	if err != nil {
		return err
	}

	if _, err := c.backend.Get(ctx, key); err != nil {
		if errors.Is(err, ErrNotExist) {
			return fmt.Errorf("%w: %s", habit.ErrNotFound, id)
		}
		return fmt.Errorf("checking document %s: %w", id, err)
	}
	return c.write(ctx, key, doc)
}

func (c *Client) Delete(ctx context.Context, owner, id string) error {
	key, err := docKey(owner, id)
	if err != nil {
		return err
	}
	if err := c.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

func (c *Client) write(ctx context.Context, key string, doc habit.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if c.cipher != nil {
		var sealed bytes.Buffer
		if err := c.cipher.Encrypt(bytes.NewReader(data), &sealed); err != nil {
			return fmt.Errorf("encrypting document: %w", err)
		}
		data = sealed.Bytes()
	}

	if err := c.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("storing document: %w", err)
	}
	return nil
}

func (c *Client) read(ctx context.Context, key string) (habit.Document, error) {
	var doc habit.Document

	data, err := c.backend.Get(ctx, key)
	if err != nil {
		return doc, err
	}

	if c.cipher != nil {
		var opened bytes.Buffer
		if err := c.cipher.Decrypt(bytes.NewReader(data), &opened); err != nil {
			return doc, fmt.Errorf("decrypting %s: %w", key, err)
		}
		data = opened.Bytes()
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decoding %s: %w", key, err)
	}
	return doc, nil
}
