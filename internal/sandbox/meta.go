package sandbox

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// boxMeta is the parsed form of an isolate --meta file. Status values:
// "TO" time limit, "SG" killed by signal, "RE" non-zero exit, "XX"
// internal isolate error, empty on success.
type boxMeta struct {
	TimeSec  float64
	WallSec  float64
	CgMemKiB int64
	ExitCode int
	ExitSig  int
	Status   string
	Message  string
}

func parseMetaFile(path string) (*boxMeta, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	meta := &boxMeta{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		switch key {
		case "time":
			meta.TimeSec, _ = strconv.ParseFloat(value, 64)
		case "time-wall":
			meta.WallSec, _ = strconv.ParseFloat(value, 64)
		case "cg-mem":
			meta.CgMemKiB, _ = strconv.ParseInt(value, 10, 64)
		case "exitcode":
			meta.ExitCode, _ = strconv.Atoi(value)
		case "exitsig":
			meta.ExitSig, _ = strconv.Atoi(value)
		case "status":
			meta.Status = value
		case "message":
			meta.Message = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if meta.ExitSig != 0 && meta.ExitCode == 0 {
		meta.ExitCode = 128 + meta.ExitSig
	}
	return meta, nil
}
