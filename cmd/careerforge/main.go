package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/careerforge/careerforge/internal/migration"
	"github.com/careerforge/careerforge/internal/observability"
	"github.com/careerforge/careerforge/internal/server"
	"github.com/careerforge/careerforge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
