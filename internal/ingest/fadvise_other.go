//go:build !linux

package ingest

import "os"

func advise(*os.File) {}
