// Package models defines domain entities for the earshot discovery service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing catalog data
//   - [Track] : Track metadata with popularity and artist list
//   - [Artist] : Artist metadata with genre tags
//   - [DiscoveryResult] : A ranked track with score and provenance reasons
//
// 2. Persistent Entities: Database-backed records
//   - [DiscoveryRun] : A saved discovery invocation with its trace and results
//
// Every entity used by the discovery engine is created fresh per request
// and discarded after the response is produced; only [DiscoveryRun] ever
// touches storage, and only when the user asks for it.
package models
