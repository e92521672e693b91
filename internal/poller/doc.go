// Package poller runs the bulk cloud refresh operations: device
// details, sites, site details and device energy, in that order. Every
// operation fans its per entity requests out concurrently, merges what
// it learns into the cache, and collects individual failures as
// partial poll errors instead of aborting, so one unreachable device
// never blocks the rest of a refresh.
//
// Standalone devices that keep their own energy history get a virtual
// site so the energy operation has somewhere to attach their
// statistics. Virtual sites exist only in the cache, the cloud is
// never asked about them.
package poller
