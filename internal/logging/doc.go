// Package logging configures structured JSON logging for kbsearch.
//
// Logs go to a size-rotated file under ~/.kbsearch/logs/. The CLI only mirrors
// them to stderr in --debug mode; the MCP server never writes to stderr or
// stdout because stdout carries the JSON-RPC stream.
package logging
