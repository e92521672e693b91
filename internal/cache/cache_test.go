package cache

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestMergeDeviceAdditive(t *testing.T) {
	c := New()
	c.MergeDevice("SN1", Attrs{"a": Int(1), "home_load_power": String("230")})
	c.MergeDevice("SN1", Attrs{"b": Int(2)})
	c.MergeDevice("SN1", Attrs{"a": Int(3)})

	attrs, ok := c.Device("SN1")
	if !ok {
		t.Fatal("device missing after merge")
	}
	if attrs["a"].Int64() != 3 || attrs["b"].Int64() != 2 {
		t.Fatalf("merged attrs = %v", attrs)
	}
	if attrs["home_load_power"].Str() != "230" {
		t.Fatal("absent key did not survive later merges")
	}
}

func TestMergeSiteAndAccount(t *testing.T) {
	c := New()
	c.MergeSite("site-1", Attrs{"power_site_type": Int(1)})
	c.MergeSite("site-1", Attrs{"power_site_type": Int(2), "is_admin": Bool(true)})
	c.MergeAccount(Attrs{"nickname": String("Tester")})
	c.MergeAccount(Attrs{"email": String("user@example.com")})

	site, ok := c.Site("site-1")
	if !ok || site["power_site_type"].Int64() != 2 || !site["is_admin"].AsBool() {
		t.Fatalf("site attrs = %v", site)
	}
	account := c.Account()
	if account["nickname"].Str() != "Tester" || account["email"].Str() != "user@example.com" {
		t.Fatalf("account attrs = %v", account)
	}
}

func TestReadCopiesAreIsolated(t *testing.T) {
	c := New()
	c.MergeDevice("SN1", Attrs{"state": Map(Attrs{"soc": Int(90)})})

	attrs, _ := c.Device("SN1")
	attrs["state"].AttrMap()["soc"] = Int(10)
	attrs["extra"] = Int(1)

	fresh, _ := c.Device("SN1")
	if fresh["state"].AttrMap()["soc"].Int64() != 90 {
		t.Fatal("mutation through read copy reached the cache")
	}
	if _, ok := fresh["extra"]; ok {
		t.Fatal("key added through read copy reached the cache")
	}
}

func TestMergeCopiesInput(t *testing.T) {
	c := New()
	nested := Attrs{"soc": Int(90)}
	c.MergeDevice("SN1", Attrs{"state": Map(nested)})
	nested["soc"] = Int(10)

	attrs, _ := c.Device("SN1")
	if attrs["state"].AttrMap()["soc"].Int64() != 90 {
		t.Fatal("cache aliased the caller's map")
	}
}

func TestEnsureVirtualSiteIdempotent(t *testing.T) {
	c := New()
	id := c.EnsureVirtualSite("SN1")
	if id != "virtual-SN1" {
		t.Fatalf("virtual site id = %q", id)
	}
	c.MergeSite(id, Attrs{"energy_grid": String("9.9")})
	if again := c.EnsureVirtualSite("SN1"); again != id {
		t.Fatalf("second call returned %q", again)
	}

	site, ok := c.Site(id)
	if !ok {
		t.Fatal("virtual site missing")
	}
	if site["site_type"].Str() != string(TypeVirtual) || site["device_sn"].Str() != "SN1" {
		t.Fatalf("virtual site attrs = %v", site)
	}
	if site["energy_grid"].Str() != "9.9" {
		t.Fatal("repeated EnsureVirtualSite reinitialized the site")
	}
}

func TestSiteDevicesSorted(t *testing.T) {
	c := New()
	c.MergeDevice("SN3", Attrs{"site_id": String("site-1")})
	c.MergeDevice("SN1", Attrs{"site_id": String("site-1")})
	c.MergeDevice("SN2", Attrs{"site_id": String("site-2")})

	got := c.SiteDevices("site-1")
	if !reflect.DeepEqual(got, []string{"SN1", "SN3"}) {
		t.Fatalf("SiteDevices = %v", got)
	}
	if got := c.SiteDevices("site-9"); got != nil {
		t.Fatalf("unknown site devices = %v", got)
	}
}

func TestSeenDiffing(t *testing.T) {
	c := New()
	c.MergeDevice("SN1", Attrs{"a": Int(1)})
	c.MergeDevice("SN2", Attrs{"a": Int(1)})
	c.MergeSite("site-1", Attrs{"a": Int(1)})

	if got := c.UnseenDevices(); len(got) != 0 {
		t.Fatalf("fresh merges reported unseen: %v", got)
	}

	c.ResetSeen()
	c.MergeDevice("SN2", Attrs{"a": Int(2)})

	if got := c.UnseenDevices(); !reflect.DeepEqual(got, []string{"SN1"}) {
		t.Fatalf("UnseenDevices = %v, want [SN1]", got)
	}
	if got := c.UnseenSites(); !reflect.DeepEqual(got, []string{"site-1"}) {
		t.Fatalf("UnseenSites = %v, want [site-1]", got)
	}

	// Entities stay cached even when unseen; the cache never evicts
	if _, ok := c.Device("SN1"); !ok {
		t.Fatal("unseen device evicted")
	}
}

func TestConcurrentMerges(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c.MergeDevice("SN1", Attrs{
					fmt.Sprintf("w%d", worker): Int(int64(i)),
					"shared":                   Int(int64(worker)),
				})
				c.EnsureVirtualSite("SN1")
				_, _ = c.Device("SN1")
			}
		}(worker)
	}
	wg.Wait()

	attrs, ok := c.Device("SN1")
	if !ok {
		t.Fatal("device missing after concurrent merges")
	}
	for worker := 0; worker < 8; worker++ {
		key := fmt.Sprintf("w%d", worker)
		if attrs[key].Int64() != 49 {
			t.Fatalf("%s = %v, want 49 (lost update)", key, attrs[key])
		}
	}
	if len(c.Sites()) != 1 {
		t.Fatalf("concurrent EnsureVirtualSite produced %d sites", len(c.Sites()))
	}
}

func TestVehicles(t *testing.T) {
	c := New()
	c.MergeVehicle("veh-1", Attrs{"vehicle_name": String("EV")})
	c.MergeVehicle("veh-1", Attrs{"battery_capacity": Float(77.4)})

	v, ok := c.Vehicle("veh-1")
	if !ok || v["vehicle_name"].Str() != "EV" || v["battery_capacity"].Float64() != 77.4 {
		t.Fatalf("vehicle attrs = %v", v)
	}
	if len(c.Vehicles()) != 1 {
		t.Fatalf("Vehicles() = %v", c.Vehicles())
	}
}
