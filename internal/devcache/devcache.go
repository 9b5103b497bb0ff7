// Package devcache shields the upstream admin API from repeated device
// list fetches and provides fuzzy name lookup over the lab targets.
package devcache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/adrg/strutil"
	strmetrics "github.com/adrg/strutil/metrics"
	radix "github.com/armon/go-radix"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"luhack/hub/internal/metrics"
	"luhack/hub/internal/sqlcgen"
	"luhack/hub/internal/tailscale"
)

// targetTag marks devices that are lab practice targets.
const targetTag = "tag:target"

// ErrUnknownDevice is returned when a name does not match any cached
// target device.
var ErrUnknownDevice = errors.New("devcache: unknown device")

// Upstream is the slice of the admin API client the cache needs.
type Upstream interface {
	Machines(ctx context.Context) ([]tailscale.Device, error)
}

// MachineStore is the minimal DB interface the cache needs.
// *sqlcgen.Queries satisfies this.
type MachineStore interface {
	ListMachines(ctx context.Context) ([]sqlcgen.Machine, error)
}

// DescribedDevice pairs a device with its locally stored description
// (empty when no hostname prefix matches).
type DescribedDevice struct {
	Device      tailscale.Device
	Description string
}

type Options struct {
	// TTL bounds staleness of the device list and of search results.
	// Defaults to 60s.
	TTL time.Duration

	// SearchLimit caps fuzzy search results. Defaults to 25.
	SearchLimit int

	// ScoreCutoff drops fuzzy matches scoring below it. Defaults to 0.5.
	ScoreCutoff float64

	Metrics *metrics.Metrics

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

type entry[T any] struct {
	value  T
	expiry time.Time
	set    bool
}

func (e entry[T]) valid(now time.Time) bool {
	return e.set && now.Before(e.expiry)
}

type Cache struct {
	client  Upstream
	store   MachineStore
	log     zerolog.Logger
	ttl     time.Duration
	limit   int
	cutoff  float64
	metrics *metrics.Metrics
	now     func() time.Time
	scorer  *strmetrics.SorensenDice

	group singleflight.Group

	mu      sync.Mutex
	devices entry[[]tailscale.Device]
	search  map[string]entry[[]DescribedDevice]
}

func New(log zerolog.Logger, client Upstream, store MachineStore, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = 60 * time.Second
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 25
	}
	if opts.ScoreCutoff == 0 {
		opts.ScoreCutoff = 0.5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		client:  client,
		store:   store,
		log:     log,
		ttl:     opts.TTL,
		limit:   opts.SearchLimit,
		cutoff:  opts.ScoreCutoff,
		metrics: opts.Metrics,
		now:     opts.Now,
		scorer:  strmetrics.NewSorensenDice(),
		search:  make(map[string]entry[[]DescribedDevice]),
	}
}

// TargetDevices returns all connected devices carrying the target tag.
// The list is refreshed from upstream at most once per TTL window;
// concurrent callers racing an expired entry share a single fetch.
func (c *Cache) TargetDevices(ctx context.Context) ([]tailscale.Device, error) {
	c.mu.Lock()
	if c.devices.valid(c.now()) {
		devs := c.devices.value
		c.mu.Unlock()
		c.metrics.IncCacheHit("devices")
		return devs, nil
	}
	c.mu.Unlock()

	c.metrics.IncCacheMiss("devices")
	v, err, _ := c.group.Do("devices", func() (any, error) {
		// A caller that queued behind the in-flight refresh may find
		// the entry already fresh.
		c.mu.Lock()
		if c.devices.valid(c.now()) {
			devs := c.devices.value
			c.mu.Unlock()
			return devs, nil
		}
		c.mu.Unlock()

		all, err := c.client.Machines(ctx)
		if err != nil {
			return nil, err
		}
		targets := make([]tailscale.Device, 0, len(all))
		for _, dev := range all {
			if dev.Connected && hasTag(dev, targetTag) {
				targets = append(targets, dev)
			}
		}
		c.metrics.IncCacheRefresh("devices")

		c.mu.Lock()
		c.devices = entry[[]tailscale.Device]{value: targets, expiry: c.now().Add(c.ttl), set: true}
		c.mu.Unlock()
		return targets, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]tailscale.Device), nil
}

// DeviceByName returns the cached target device with an exactly matching
// name, or ErrUnknownDevice.
func (c *Cache) DeviceByName(ctx context.Context, name string) (tailscale.Device, error) {
	devs, err := c.TargetDevices(ctx)
	if err != nil {
		return tailscale.Device{}, err
	}
	for _, dev := range devs {
		if dev.Name == name {
			return dev, nil
		}
	}
	return tailscale.Device{}, ErrUnknownDevice
}

// DevicesByHostname returns every cached target device whose hostname
// matches exactly. Upstream may register duplicates; callers must handle
// the multi-match case themselves (warn and pick one).
func (c *Cache) DevicesByHostname(ctx context.Context, hostname string) ([]tailscale.Device, error) {
	devs, err := c.TargetDevices(ctx)
	if err != nil {
		return nil, err
	}
	var out []tailscale.Device
	for _, dev := range devs {
		if dev.Hostname == hostname {
			out = append(out, dev)
		}
	}
	return out, nil
}

// Search fuzzy-matches query against target device names and pairs each
// hit with its stored description (longest hostname prefix wins). An
// empty query returns every target device, described. Results are
// cached per query for the TTL window.
func (c *Cache) Search(ctx context.Context, query string) ([]DescribedDevice, error) {
	c.mu.Lock()
	if e, ok := c.search[query]; ok && e.valid(c.now()) {
		res := e.value
		c.mu.Unlock()
		c.metrics.IncCacheHit("search")
		return res, nil
	}
	c.mu.Unlock()

	c.metrics.IncCacheMiss("search")
	v, err, _ := c.group.Do("search:"+query, func() (any, error) {
		c.mu.Lock()
		if e, ok := c.search[query]; ok && e.valid(c.now()) {
			res := e.value
			c.mu.Unlock()
			return res, nil
		}
		c.mu.Unlock()

		res, err := c.runSearch(ctx, query)
		if err != nil {
			return nil, err
		}
		c.metrics.IncCacheRefresh("search")

		c.mu.Lock()
		c.search[query] = entry[[]DescribedDevice]{value: res, expiry: c.now().Add(c.ttl), set: true}
		c.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]DescribedDevice), nil
}

// Invalidate drops the device list and all search results, forcing the
// next read to refetch. Must be called after any machine description
// write so stale descriptions never outlive the write.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.devices = entry[[]tailscale.Device]{}
	c.search = make(map[string]entry[[]DescribedDevice])
	c.mu.Unlock()
	c.log.Debug().Msg("device cache invalidated")
}

func (c *Cache) runSearch(ctx context.Context, query string) ([]DescribedDevice, error) {
	machines, err := c.store.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	trie := radix.New()
	for _, m := range machines {
		trie.Insert(m.Hostname, m.Description)
	}

	devs, err := c.TargetDevices(ctx)
	if err != nil {
		return nil, err
	}

	matched := devs
	if query != "" {
		matched = c.rank(query, devs)
	}

	out := make([]DescribedDevice, 0, len(matched))
	for _, dev := range matched {
		out = append(out, DescribedDevice{Device: dev, Description: describe(trie, dev.Name)})
	}
	return out, nil
}

// rank scores device names against the query and keeps the best
// matches, at most limit, all at or above the cutoff.
func (c *Cache) rank(query string, devs []tailscale.Device) []tailscale.Device {
	type scored struct {
		dev   tailscale.Device
		score float64
	}

	ranked := make([]scored, 0, len(devs))
	for _, dev := range devs {
		s := strutil.Similarity(query, dev.Name, c.scorer)
		if s < c.cutoff {
			continue
		}
		ranked = append(ranked, scored{dev: dev, score: s})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].dev.Name < ranked[j].dev.Name
	})

	if len(ranked) > c.limit {
		ranked = ranked[:c.limit]
	}

	out := make([]tailscale.Device, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.dev)
	}
	return out
}

// describe resolves the longest stored hostname prefix of name.
func describe(trie *radix.Tree, name string) string {
	if _, v, ok := trie.LongestPrefix(name); ok {
		if desc, ok := v.(string); ok {
			return desc
		}
	}
	return ""
}

func hasTag(dev tailscale.Device, tag string) bool {
	for _, t := range dev.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
