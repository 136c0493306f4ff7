// Package all registers every built-in attachment driver via side
// effect. Import it blank from the binary entrypoint.
package all

import (
	_ "github.com/skiff-data/skiff-engine/pkg/engine/drivers/gsheet"
	_ "github.com/skiff-data/skiff-engine/pkg/engine/drivers/httpserver"
	_ "github.com/skiff-data/skiff-engine/pkg/engine/drivers/iceberg"
	_ "github.com/skiff-data/skiff-engine/pkg/engine/drivers/motherduck"
	_ "github.com/skiff-data/skiff-engine/pkg/engine/drivers/mysql"
	_ "github.com/skiff-data/skiff-engine/pkg/engine/drivers/postgres"
	_ "github.com/skiff-data/skiff-engine/pkg/engine/drivers/urlremote"
)
