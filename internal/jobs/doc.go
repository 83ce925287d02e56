// Package jobs defines River Queue job types for background maintenance.
package jobs
