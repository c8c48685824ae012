//go:build !linux

package justone

import "os"

func adviseSequential(file *os.File) {}
