// Package pkg provides the core libraries for modguard dependency analysis.
//
// # Overview
//
// Modguard detects top-level module namespace collisions in Python
// dependency closures: two packages shipping the same importable name,
// where the import system silently picks one winner. The pkg directory is
// organized into four main areas:
//
//  1. Domain logic - closure, depgraph, extract, collision, fixplan, shim
//  2. Infrastructure - cache, errors, observability, buildinfo
//  3. Integrations - pyindex (PyPI JSON API), report (CI surfaces)
//  4. Orchestration - pipeline, render
//
// # Architecture
//
// The typical data flow through a scan:
//
//	Closure document / lockfile
//	         ↓
//	closure  (parse, normalize, validate)
//	         ↓
//	depgraph (BFS layering, deterministic order)
//	         ↓
//	extract  (file manifests → top-level modules)
//	         ↓
//	collision (detect, grade, whitelist)
//	         ↓
//	fixplan  (strategy selection, artifact writing)
//	         ↓
//	report   (export, GitHub annotations)
//
// The pipeline package wires these stages together; internal/cli exposes
// them as commands.
package pkg
