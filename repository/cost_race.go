//go:build race

package repository

import "golang.org/x/crypto/bcrypt"

func hashCost() int {
	// race builds are slow enough already; keep command tests under their timeouts
	return bcrypt.MinCost
}
