// Package sizefmt renders byte counts the way KFS's CLI reports shard and
// table sizes (spec §8 scenario 4).
package sizefmt

import "fmt"

// Bytes renders n as a human-readable IEC size with one decimal place, e.g.
// "32.0 GiB"; counts below 1 KiB print as whole bytes, e.g. "1000 B".
func Bytes(n uint64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	v := float64(n)
	u := -1
	for {
		v /= 1024
		u++
		if v < 1024 || u == len(units)-1 {
			break
		}
	}
	return fmt.Sprintf("%.1f %s", v, units[u])
}
