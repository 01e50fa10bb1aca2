// Package view derives display values from recipes and session snapshots.
// Everything here is a pure function of its inputs.
package view
