package devcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"luhack/hub/internal/sqlcgen"
	"luhack/hub/internal/tailscale"
)

type fakeUpstream struct {
	devices []tailscale.Device
	err     error
	fetches int
}

func (f *fakeUpstream) Machines(_ context.Context) ([]tailscale.Device, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return f.devices, nil
}

type fakeStore struct {
	machines []sqlcgen.Machine
	err      error
}

func (f *fakeStore) ListMachines(_ context.Context) ([]sqlcgen.Machine, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.machines, nil
}

func target(name, hostname string) tailscale.Device {
	return tailscale.Device{
		ID:        "id-" + name,
		Name:      name,
		Hostname:  hostname,
		Addresses: []string{"100.64.0.1"},
		Tags:      []string{"tag:target"},
		Connected: true,
	}
}

func newTestCache(up Upstream, store MachineStore, now *time.Time) *Cache {
	return New(zerolog.Nop(), up, store, Options{
		Now: func() time.Time { return *now },
	})
}

func TestTargetDevices_SingleFetchPerWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{devices: []tailscale.Device{target("gateway", "gateway")}}
	c := newTestCache(up, &fakeStore{}, &now)

	for i := 0; i < 5; i++ {
		devs, err := c.TargetDevices(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(devs) != 1 {
			t.Fatalf("expected 1 device, got %d", len(devs))
		}
	}
	if up.fetches != 1 {
		t.Fatalf("expected 1 upstream fetch within TTL, got %d", up.fetches)
	}

	now = now.Add(61 * time.Second)
	if _, err := c.TargetDevices(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.fetches != 2 {
		t.Fatalf("expected refetch after TTL, got %d fetches", up.fetches)
	}
}

func TestTargetDevices_FiltersNonTargets(t *testing.T) {
	now := time.Unix(1000, 0)
	offline := target("sleeper", "sleeper")
	offline.Connected = false
	untagged := target("laptop", "laptop")
	untagged.Tags = nil

	up := &fakeUpstream{devices: []tailscale.Device{target("gateway", "gateway"), offline, untagged}}
	c := newTestCache(up, &fakeStore{}, &now)

	devs, err := c.TargetDevices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devs) != 1 || devs[0].Name != "gateway" {
		t.Fatalf("expected only the connected tagged device, got %+v", devs)
	}
}

func TestTargetDevices_ErrorNotCached(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{err: errors.New("control plane down")}
	c := newTestCache(up, &fakeStore{}, &now)

	if _, err := c.TargetDevices(context.Background()); err == nil {
		t.Fatalf("expected error")
	}

	up.err = nil
	up.devices = []tailscale.Device{target("gateway", "gateway")}
	devs, err := c.TargetDevices(context.Background())
	if err != nil {
		t.Fatalf("expected recovery after upstream error: %v", err)
	}
	if len(devs) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devs))
	}
}

func TestDeviceByName(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{devices: []tailscale.Device{target("gateway", "gateway")}}
	c := newTestCache(up, &fakeStore{}, &now)

	dev, err := c.DeviceByName(context.Background(), "gateway")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev.ID != "id-gateway" {
		t.Fatalf("wrong device: %+v", dev)
	}

	if _, err := c.DeviceByName(context.Background(), "nope"); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestDevicesByHostname_ReturnsDuplicates(t *testing.T) {
	now := time.Unix(1000, 0)
	a := target("web-1", "web")
	b := target("web-2", "web")
	up := &fakeUpstream{devices: []tailscale.Device{a, b, target("gateway", "gateway")}}
	c := newTestCache(up, &fakeStore{}, &now)

	devs, err := c.DevicesByHostname(context.Background(), "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devs) != 2 {
		t.Fatalf("expected both duplicate-hostname devices, got %d", len(devs))
	}
}

func TestSearch_CutoffAndOrder(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{devices: []tailscale.Device{
		target("gateway", "gateway"),
		target("gateway-2", "gateway-2"),
		target("zzzzz", "zzzzz"),
	}}
	c := newTestCache(up, &fakeStore{}, &now)

	res, err := c.Search(context.Background(), "gateway")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected the unrelated name to fall below the cutoff, got %d results", len(res))
	}
	if res[0].Device.Name != "gateway" {
		t.Fatalf("expected exact match ranked first, got %q", res[0].Device.Name)
	}
}

func TestSearch_MatchesNamesOnly(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{devices: []tailscale.Device{
		target("puzzle-box", "gateway"),
		target("gateway", "gw-0"),
	}}
	c := newTestCache(up, &fakeStore{}, &now)

	res, err := c.Search(context.Background(), "gateway")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 || res[0].Device.Name != "gateway" {
		t.Fatalf("expected only the name match, hostnames are not scored: %+v", res)
	}
}

func TestSearch_EmptyQueryListsEverything(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{devices: []tailscale.Device{
		target("gateway", "gateway"),
		target("zzzzz", "zzzzz"),
	}}
	c := newTestCache(up, &fakeStore{}, &now)

	res, err := c.Search(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected all targets for an empty query, got %d", len(res))
	}
}

func TestSearch_DescriptionLongestPrefix(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{devices: []tailscale.Device{target("web-01", "web-01")}}
	store := &fakeStore{machines: []sqlcgen.Machine{
		{Hostname: "web", Description: "generic web box"},
		{Hostname: "web-01", Description: "the specific one"},
	}}
	c := newTestCache(up, store, &now)

	res, err := c.Search(context.Background(), "web-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) == 0 {
		t.Fatalf("expected a result")
	}
	if res[0].Description != "the specific one" {
		t.Fatalf("expected longest prefix to win, got %q", res[0].Description)
	}
}

func TestInvalidate_ReflectsDescriptionWrite(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{devices: []tailscale.Device{target("gateway", "gateway")}}
	store := &fakeStore{}
	c := newTestCache(up, store, &now)

	res, err := c.Search(context.Background(), "gateway")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res[0].Description != "" {
		t.Fatalf("expected no description yet, got %q", res[0].Description)
	}

	store.machines = []sqlcgen.Machine{{Hostname: "gateway", Description: "lab ingress"}}
	c.Invalidate()

	res, err = c.Search(context.Background(), "gateway")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res[0].Description != "lab ingress" {
		t.Fatalf("expected fresh description after invalidate, got %q", res[0].Description)
	}
}

func TestSearch_CachedPerQuery(t *testing.T) {
	now := time.Unix(1000, 0)
	up := &fakeUpstream{devices: []tailscale.Device{target("gateway", "gateway")}}
	store := &fakeStore{}
	c := newTestCache(up, store, &now)

	if _, err := c.Search(context.Background(), "gateway"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A store failure is invisible while the query result is cached.
	store.err = errors.New("db down")
	if _, err := c.Search(context.Background(), "gateway"); err != nil {
		t.Fatalf("expected cached result, got %v", err)
	}
	if _, err := c.Search(context.Background(), "other"); err == nil {
		t.Fatalf("expected uncached query to hit the failing store")
	}
}
