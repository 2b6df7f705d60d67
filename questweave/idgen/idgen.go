package idgen

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const shortIDLength = 6

var (
	nodeOnce sync.Once
	node     *snowflake.Node
	nodeErr  error
)

// Init configures the snowflake node for this worker. Safe to call once per
// process; ID generation panics if never initialized.
func Init(workerID int64) error {
	nodeOnce.Do(func() {
		node, nodeErr = snowflake.NewNode(workerID)
	})
	return nodeErr
}

// Next returns a new time-ordered unique int64 id.
func Next() int64 {
	if node == nil {
		panic("idgen: Init not called")
	}
	return node.Generate().Int64()
}

// NewShortID returns a short public slug, e.g. "QW-4KPX2A". Uniqueness is
// enforced by the database constraint; callers retry on conflict.
func NewShortID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	encoded = strings.ToUpper(encoded)
	if len(encoded) > shortIDLength {
		encoded = encoded[:shortIDLength]
	}
	return "QW-" + encoded, nil
}
