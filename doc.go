// Package keel is a schema-first, server-side data platform.
//
// Users author a declarative schema describing models, fields, relations,
// enums and field/action pipelines. The platform compiles that schema once
// at startup (see package schema) and exposes a JSON CRUD API (see package
// action) that executes queries and mutations against a pluggable storage
// backend (see package connection), enforcing validation, transformation,
// access control and cascading relation operations along the way (see
// packages pipeline, object and relationwalker).
//
// This root package holds the handful of types shared across every layer:
// the canonical error taxonomy and the optional result cache.
package keel
