package clients

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/naqi324/librechat-cdk/lib/constants"
)

// NewDocumentDBClient builds a mongo client for the DocumentDB cluster.
// DocumentDB requires TLS with the RDS CA bundle and runs as the fixed rs0
// replica set. selectionTimeout bounds server selection for probe
// connections; pass 0 for the driver default.
func NewDocumentDBClient(host, port, user, password string, selectionTimeout time.Duration) (*mongo.Client, error) {
	// Credentials go through the URI, so reserved characters must be escaped.
	uri := fmt.Sprintf("mongodb://%s:%s@%s/?tls=true&tlsCAFile=%s&replicaSet=%s",
		url.QueryEscape(user), url.QueryEscape(password),
		net.JoinHostPort(host, port), constants.DOCDB_CA_FILE, constants.DOCDB_REPLICA_SET)

	opts := options.Client().ApplyURI(uri)
	if selectionTimeout > 0 {
		opts.SetServerSelectionTimeout(selectionTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create DocumentDB client: %w", err)
	}
	return client, nil
}
