// Package fileutil discovers device log files on disk.
//
// ScanDirectory walks a directory with extension, pattern and depth filters
// and returns sorted absolute paths. Hidden directories and spreadsheet lock
// files (names starting with "~$") are always skipped. Non-fatal errors such
// as an unreadable subdirectory are collected on the ScanResult and the walk
// continues.
//
// ScanDeviceFiles is the entry point used by folder loading:
//
//	result, err := fileutil.ScanDeviceFiles("/data/cohort1", true)
//	if err != nil {
//	    return err
//	}
//	for _, path := range result.Files {
//	    ...
//	}
package fileutil
