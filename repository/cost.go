//go:build !race

package repository

func hashCost() int {
	return DefaultCost
}
