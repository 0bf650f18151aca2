// Package display renders agent runs for a terminal: rounded boxes for
// thoughts, actions and results, and plots saved to disk.
package display
