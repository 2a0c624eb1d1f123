package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
)

// sessionDocID is the one fixed key the serialized session lives under.
const sessionDocID = "osra_user"

// CouchbasePersister mirrors the session into a Couchbase bucket. It is the
// durable analog of the original client's local-storage fallback.
type CouchbasePersister struct {
	cluster *gocb.Cluster
	bucket  *gocb.Bucket
}

// NewCouchbasePersister connects to the cluster and opens the bucket.
func NewCouchbasePersister(url, username, password, bucketName string) (*CouchbasePersister, error) {
	cluster, err := gocb.Connect(url, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	if err := cluster.WaitUntilReady(30*time.Second, nil); err != nil {
		return nil, fmt.Errorf("failed to wait for cluster: %w", err)
	}

	bucket := cluster.Bucket(bucketName)
	if err := bucket.WaitUntilReady(10*time.Second, nil); err != nil {
		return nil, fmt.Errorf("bucket %q is not accessible: %w", bucketName, err)
	}

	return &CouchbasePersister{
		cluster: cluster,
		bucket:  bucket,
	}, nil
}

// Save stores or updates the session document.
func (p *CouchbasePersister) Save(ctx context.Context, s Session) error {
	col := p.bucket.DefaultCollection()

	_, err := col.Upsert(sessionDocID, s, &gocb.UpsertOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("failed to upsert session document: %w", err)
	}
	return nil
}

// Load retrieves the session document, ErrNoSession when absent.
func (p *CouchbasePersister) Load(ctx context.Context) (*Session, error) {
	col := p.bucket.DefaultCollection()

	result, err := col.Get(sessionDocID, &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to get session document: %w", err)
	}

	var s Session
	if err := result.Content(&s); err != nil {
		return nil, fmt.Errorf("failed to parse session document: %w", err)
	}
	return &s, nil
}

// Delete removes the session document.
func (p *CouchbasePersister) Delete(ctx context.Context) error {
	col := p.bucket.DefaultCollection()

	_, err := col.Remove(sessionDocID, &gocb.RemoveOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return ErrNoSession
		}
		return fmt.Errorf("failed to remove session document: %w", err)
	}
	return nil
}

// Close closes the Couchbase connection.
func (p *CouchbasePersister) Close() error {
	return p.cluster.Close(nil)
}
