package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const recordTimeout = 5 * time.Second

// untrackedPrefixes are never counted as visits.
var untrackedPrefixes = []string{"/static/", "/images/", "/admin", "/favicon", "/privacy", "/view/", "/healthz"}

// Recorder is the subset of Store the tracker writes to.
type Recorder interface {
	RecordVisit(ctx context.Context, hashedIP, userAgent, path string) error
	RecordSection(ctx context.Context, viewID, section string) error
}

// Tracker records metrics in the background so requests never wait on the
// database.
type Tracker struct {
	rec  Recorder
	salt string
	log  *zap.Logger
	wg   sync.WaitGroup
}

// NewTracker returns a tracker hashing IPs with a fresh per-process salt.
func NewTracker(rec Recorder, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{rec: rec, salt: RandomToken(), log: logger}
}

// RandomToken returns 32 random bytes, hex encoded.
func RandomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("analytics: reading random bytes: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// HashIP hashes ip with the tracker's salt. The result is stable for the
// life of the process.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Middleware records page visits, skipping assets, admin pages, API calls
// and requests carrying DNT: 1.
func (t *Tracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method == http.MethodGet && Trackable(path) && c.GetHeader("DNT") != "1" {
			hashed := t.HashIP(c.ClientIP())
			ua := c.GetHeader("User-Agent")
			t.async("visit", func(ctx context.Context) error {
				return t.rec.RecordVisit(ctx, hashed, ua, path)
			})
		}
		c.Next()
	}
}

// Section records a navigation to section from the page view.
func (t *Tracker) Section(viewID, section string) {
	t.async("section", func(ctx context.Context) error {
		return t.rec.RecordSection(ctx, viewID, section)
	})
}

// Wait blocks until in-flight writes have finished.
func (t *Tracker) Wait() { t.wg.Wait() }

func (t *Tracker) async(kind string, fn func(context.Context) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			t.log.Warn("recording analytics", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

// Trackable reports whether a request path counts as a page visit.
func Trackable(path string) bool {
	for _, p := range untrackedPrefixes {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return true
}

// RunCleanup applies the retention policy now and then every interval until
// ctx is done.
func RunCleanup(ctx context.Context, s *Store, retention, interval time.Duration, logger *zap.Logger) {
	clean := func() {
		n, err := s.Cleanup(ctx, retention)
		if err != nil {
			logger.Warn("analytics cleanup", zap.Error(err))
			return
		}
		if n > 0 {
			logger.Info("analytics cleanup removed old rows", zap.Int64("rows", n), zap.Duration("retention", retention))
		}
	}
	clean()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			clean()
		}
	}
}
