package memory

import (
	"context"

	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
)

func testDBC() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }
