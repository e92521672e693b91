package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/thomluther/anker-solix-api/internal/api"
	"github.com/thomluther/anker-solix-api/internal/cache"
)

// fakeClient serves canned JSON per endpoint and records call order.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		responses: make(map[string]string),
		failures:  make(map[string]error),
	}
}

func (f *fakeClient) Request(_ context.Context, _, endpoint string, _ any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, endpoint)
	f.mu.Unlock()
	if err, ok := f.failures[endpoint]; ok {
		return nil, err
	}
	if body, ok := f.responses[endpoint]; ok {
		return json.RawMessage(body), nil
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeClient) callCount(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == endpoint {
			n++
		}
	}
	return n
}

func TestUpdateDeviceDetailsCreatesVirtualSiteOnce(t *testing.T) {
	client := newFakeClient()
	client.responses["bind_devices"] = `{"data":[
		{"device_sn":"SN1","device_pn":"A17C0","type":"solarbank"}
	]}`
	c := cache.New()
	p := New(client, c, nil)

	for i := 0; i < 3; i++ {
		if _, err := p.UpdateDeviceDetails(context.Background()); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	sites := c.Sites()
	if len(sites) != 1 {
		t.Fatalf("sites = %d, want exactly one virtual site", len(sites))
	}
	site, ok := c.Site("virtual-SN1")
	if !ok {
		t.Fatal("virtual-SN1 not created")
	}
	if got := site["site_type"].Str(); got != "virtual" {
		t.Errorf("site_type = %q", got)
	}

	dev, ok := c.Device("SN1")
	if !ok {
		t.Fatal("SN1 not cached")
	}
	if got := dev["site_id"].Str(); got != "virtual-SN1" {
		t.Errorf("device site_id = %q, want virtual-SN1", got)
	}
}

func TestUpdateDeviceDetailsNoVirtualSiteForBoundDevice(t *testing.T) {
	client := newFakeClient()
	client.responses["bind_devices"] = `{"data":[
		{"device_sn":"SN2","device_pn":"A17C1","type":"solarbank","site_id":"S1"}
	]}`
	c := cache.New()
	p := New(client, c, nil)

	if _, err := p.UpdateDeviceDetails(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(c.Sites()) != 0 {
		t.Error("bound device must not create a virtual site")
	}
}

func TestUpdateSitesMergesAdditively(t *testing.T) {
	client := newFakeClient()
	client.responses["site_list"] = `{"site_list":[{"site_id":"S1","power_site_type":1,"ms_type":1}]}`
	client.responses["scene_info"] = `{"home_load_power":"230"}`
	c := cache.New()
	p := New(client, c, nil)

	if _, err := p.UpdateSites(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A later pass updating one attribute must keep the others.
	client.responses["site_list"] = `{"site_list":[{"site_id":"S1","power_site_type":2}]}`
	client.responses["scene_info"] = `{}`
	if _, err := p.UpdateSites(context.Background()); err != nil {
		t.Fatal(err)
	}

	site, ok := c.Site("S1")
	if !ok {
		t.Fatal("site S1 missing")
	}
	if got := site["power_site_type"].Int64(); got != 2 {
		t.Errorf("power_site_type = %d, want 2", got)
	}
	if got := site["home_load_power"].Str(); got != "230" {
		t.Errorf("home_load_power = %q, want kept from first pass", got)
	}
	if !site["is_admin"].AsBool() {
		t.Error("is_admin lost across merges")
	}
}

func TestPartialFailuresAreCollected(t *testing.T) {
	client := newFakeClient()
	client.responses["bind_devices"] = `{"data":[
		{"device_sn":"SN1","type":"solarbank","site_id":"S1"},
		{"device_sn":"SN2","type":"solarbank","site_id":"S1"}
	]}`
	client.failures["device_info"] = api.NewRequestError(500, "boom", "device_info")
	c := cache.New()
	p := New(client, c, nil)

	errs, err := p.UpdateDeviceDetails(context.Background())
	if err != nil {
		t.Fatalf("operation must stay best effort: %v", err)
	}
	if len(errs) != 2 {
		t.Fatalf("partial errors = %d, want one per device", len(errs))
	}
	for _, e := range errs {
		if !api.IsPartialPollError(e) {
			t.Errorf("error type = %T (%v)", e, e)
		}
	}

	// Both devices still landed in the cache despite the failures.
	if _, ok := c.Device("SN1"); !ok {
		t.Error("SN1 missing from cache")
	}
	if _, ok := c.Device("SN2"); !ok {
		t.Error("SN2 missing from cache")
	}
}

func TestUpdateDeviceDetailsFailsWhenInventoryUnavailable(t *testing.T) {
	client := newFakeClient()
	client.failures["bind_devices"] = api.NewRequestError(503, "unavailable", "bind_devices")
	p := New(client, cache.New(), nil)

	if _, err := p.UpdateDeviceDetails(context.Background()); err == nil {
		t.Fatal("expected error when the inventory endpoint fails")
	}
}

func TestUpdateSiteDetailsSkipsVirtualSites(t *testing.T) {
	client := newFakeClient()
	c := cache.New()
	c.EnsureVirtualSite("SN1")
	c.MergeSite("S1", cache.Attrs{"site_id": cache.String("S1")})
	p := New(client, c, nil)

	if _, err := p.UpdateSiteDetails(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Three detail endpoints for the real site, none for the virtual.
	if got := client.callCount("site_detail"); got != 1 {
		t.Errorf("site_detail calls = %d, want 1", got)
	}
}

func TestUpdateDeviceEnergyQueriesByDeviceType(t *testing.T) {
	client := newFakeClient()
	client.responses["energy_analysis"] = `{"power":[{"value":"1.2"}]}`
	c := cache.New()
	c.MergeSite("S1", cache.Attrs{"site_id": cache.String("S1")})
	c.MergeDevice("SN1", cache.Attrs{
		"device_sn": cache.String("SN1"),
		"site_id":   cache.String("S1"),
		"type":      cache.String("solarbank"),
	})
	p := New(client, c, nil)

	errs, err := p.UpdateDeviceEnergy(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected partial errors: %v", errs)
	}
	// solar_production, home_usage, grid and solarbank for this site.
	if got := client.callCount("energy_analysis"); got != 4 {
		t.Errorf("energy_analysis calls = %d, want 4", got)
	}

	site, _ := c.Site("S1")
	if _, ok := site["energy_solarbank"]; !ok {
		t.Error("energy_solarbank not merged into site")
	}
}

func TestEnergyThrottleIsolationPerSite(t *testing.T) {
	// A failing site must not block statistics for a healthy one.
	client := newFakeClient()
	client.responses["energy_analysis"] = `{"power":[]}`
	c := cache.New()
	c.MergeSite("S1", cache.Attrs{"site_id": cache.String("S1")})
	c.MergeSite("S2", cache.Attrs{"site_id": cache.String("S2")})
	p := New(client, c, nil)

	if _, err := p.UpdateDeviceEnergy(context.Background()); err != nil {
		t.Fatal(err)
	}
	s1, _ := c.Site("S1")
	s2, _ := c.Site("S2")
	if _, ok := s1["energy_solar_production"]; !ok {
		t.Error("S1 missing energy data")
	}
	if _, ok := s2["energy_solar_production"]; !ok {
		t.Error("S2 missing energy data")
	}
}

func TestPollAllRunsInOrder(t *testing.T) {
	client := newFakeClient()
	client.responses["bind_devices"] = `{"data":[]}`
	client.responses["site_list"] = `{"site_list":[]}`
	p := New(client, cache.New(), nil)

	if _, err := p.PollAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	first := func(endpoint string) int {
		for i, c := range client.calls {
			if c == endpoint {
				return i
			}
		}
		return -1
	}
	bind, sites := first("bind_devices"), first("site_list")
	if bind == -1 || sites == -1 || bind > sites {
		t.Errorf("call order: bind_devices at %d, site_list at %d", bind, sites)
	}
}

func TestPollAllStopsOnOperationFailure(t *testing.T) {
	client := newFakeClient()
	client.failures["bind_devices"] = fmt.Errorf("offline")
	p := New(client, cache.New(), nil)

	if _, err := p.PollAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if client.callCount("site_list") != 0 {
		t.Error("later operations ran after a failed one")
	}
}
