package cache

import (
	"sort"
	"sync"
)

// Cache is the normalized entity graph for one account session: account
// attributes, sites, devices, and vehicles nested under the account. The
// cache exclusively owns these maps; all writes go through the merge
// operations, which apply the additive-merge rule (a key present in the
// update replaces the cached value, absent keys stay untouched). Entities
// are never evicted during a session.
type Cache struct {
	mu       sync.RWMutex
	account  Attrs
	sites    map[string]Attrs
	devices  map[string]Attrs
	vehicles map[string]Attrs

	// per-entity merge locks for single-writer-per-key discipline
	lockMu      sync.Mutex
	entityLocks map[string]*sync.Mutex

	// seen sets since the last ResetSeen, for caller-side removal diffing
	seenSites   map[string]bool
	seenDevices map[string]bool
}

// New creates an empty cache
func New() *Cache {
	return &Cache{
		account:     make(Attrs),
		sites:       make(map[string]Attrs),
		devices:     make(map[string]Attrs),
		vehicles:    make(map[string]Attrs),
		entityLocks: make(map[string]*sync.Mutex),
		seenSites:   make(map[string]bool),
		seenDevices: make(map[string]bool),
	}
}

// entityLock returns the merge lock for an entity key, creating it on first
// use. Merges for the same key serialize on this lock; merges for different
// keys proceed concurrently.
func (c *Cache) entityLock(key string) *sync.Mutex {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	lock := c.entityLocks[key]
	if lock == nil {
		lock = &sync.Mutex{}
		c.entityLocks[key] = lock
	}
	return lock
}

// merge applies attrs onto the entity stored in table under key. The entity
// map is copied, updated, and swapped so readers never observe a half-merged
// entity.
func (c *Cache) merge(table map[string]Attrs, lockKey, key string, attrs Attrs) {
	lock := c.entityLock(lockKey)
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	current := table[key]
	c.mu.RUnlock()

	next := current.Clone()
	if next == nil {
		next = make(Attrs, len(attrs))
	}
	for k, v := range attrs {
		next[k] = v.Clone()
	}

	c.mu.Lock()
	table[key] = next
	c.mu.Unlock()
}

// MergeDevice merges attrs into the device identified by serial number
func (c *Cache) MergeDevice(serial string, attrs Attrs) {
	c.merge(c.devices, "device/"+serial, serial, attrs)
	c.mu.Lock()
	c.seenDevices[serial] = true
	c.mu.Unlock()
}

// MergeSite merges attrs into the site identified by site id
func (c *Cache) MergeSite(siteID string, attrs Attrs) {
	c.merge(c.sites, "site/"+siteID, siteID, attrs)
	c.mu.Lock()
	c.seenSites[siteID] = true
	c.mu.Unlock()
}

// MergeAccount merges attrs into the session account entity
func (c *Cache) MergeAccount(attrs Attrs) {
	lock := c.entityLock("account")
	lock.Lock()
	defer lock.Unlock()

	c.mu.RLock()
	next := c.account.Clone()
	c.mu.RUnlock()
	if next == nil {
		next = make(Attrs, len(attrs))
	}
	for k, v := range attrs {
		next[k] = v.Clone()
	}
	c.mu.Lock()
	c.account = next
	c.mu.Unlock()
}

// MergeVehicle merges attrs into the vehicle identified by vehicle id.
// Vehicles belong to the account and never to a site.
func (c *Cache) MergeVehicle(vehicleID string, attrs Attrs) {
	c.merge(c.vehicles, "vehicle/"+vehicleID, vehicleID, attrs)
}

// EnsureVirtualSite creates the virtual site wrapping a standalone device if
// it does not exist yet, and returns its id. Repeated calls for the same
// device are idempotent; an existing virtual site is never reinitialized.
func (c *Cache) EnsureVirtualSite(deviceSN string) string {
	siteID := VirtualSiteID(deviceSN)
	lock := c.entityLock("site/" + siteID)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	if _, exists := c.sites[siteID]; !exists {
		c.sites[siteID] = Attrs{
			"site_id":   String(siteID),
			"site_type": String(string(TypeVirtual)),
			"device_sn": String(deviceSN),
		}
	}
	c.seenSites[siteID] = true
	c.mu.Unlock()
	return siteID
}

// Account returns a copy of the account attributes
func (c *Cache) Account() Attrs {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account.Clone()
}

// Device returns a copy of a device's attributes
func (c *Cache) Device(serial string) (Attrs, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs, ok := c.devices[serial]
	return attrs.Clone(), ok
}

// Site returns a copy of a site's attributes
func (c *Cache) Site(siteID string) (Attrs, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs, ok := c.sites[siteID]
	return attrs.Clone(), ok
}

// Vehicle returns a copy of a vehicle's attributes
func (c *Cache) Vehicle(vehicleID string) (Attrs, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	attrs, ok := c.vehicles[vehicleID]
	return attrs.Clone(), ok
}

// Devices returns a copy of all device entities keyed by serial
func (c *Cache) Devices() map[string]Attrs {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Attrs, len(c.devices))
	for k, v := range c.devices {
		out[k] = v.Clone()
	}
	return out
}

// Sites returns a copy of all site entities keyed by site id
func (c *Cache) Sites() map[string]Attrs {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Attrs, len(c.sites))
	for k, v := range c.sites {
		out[k] = v.Clone()
	}
	return out
}

// Vehicles returns a copy of all vehicle entities keyed by vehicle id
func (c *Cache) Vehicles() map[string]Attrs {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Attrs, len(c.vehicles))
	for k, v := range c.vehicles {
		out[k] = v.Clone()
	}
	return out
}

// SiteDevices returns the serials of all devices belonging to siteID, sorted
func (c *Cache) SiteDevices(siteID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var serials []string
	for sn, attrs := range c.devices {
		if attrs["site_id"].Str() == siteID {
			serials = append(serials, sn)
		}
	}
	sort.Strings(serials)
	return serials
}

// ResetSeen clears the seen sets before a refresh cycle
func (c *Cache) ResetSeen() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seenSites = make(map[string]bool)
	c.seenDevices = make(map[string]bool)
}

// UnseenDevices returns cached device serials not merged since the last
// ResetSeen. The cache performs no eviction; callers diff seen sets to
// detect vanished devices.
func (c *Cache) UnseenDevices() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for sn := range c.devices {
		if !c.seenDevices[sn] {
			out = append(out, sn)
		}
	}
	sort.Strings(out)
	return out
}

// UnseenSites returns cached site ids not merged since the last ResetSeen
func (c *Cache) UnseenSites() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []string
	for id := range c.sites {
		if !c.seenSites[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
