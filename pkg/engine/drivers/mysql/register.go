package mysql

import "github.com/skiff-data/skiff-engine/pkg/engine/drivers"

func init() {
	drivers.Register(driver{})
}
