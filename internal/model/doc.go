// Package model defines the core record types shared across the review
// pipeline: change sets, file patches, findings, and review results.
package model
