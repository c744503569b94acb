// Package staging sweeps aged files and directories out of working
// directories. The upload reaper and the startup sweep of the transform temp
// dir both use CleanStale; MeasureUsage backs the stats endpoint.
package staging
