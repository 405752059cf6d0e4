// Package tms defines the contract tmsbridge needs from a Translation
// Management System and an HTTP implementation of it.
//
// The broker depends only on Client. HTTPClient speaks a small JSON REST
// surface with bearer authentication; tests substitute a scripted fake.
package tms
