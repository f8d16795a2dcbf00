package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/bennyz/qarax/cmd/server/wire"
	"github.com/bennyz/qarax/pkg/config"
	"github.com/bennyz/qarax/pkg/log"

	"go.uber.org/zap"
)

// @title           qarax API
// @version         1.0.0
// @description     qarax is a control plane for microVM hosts: it tracks hosts, storage pools and boot artifacts, and drives VM lifecycles through per-host node agents.
// @contact.name   qarax
// @contact.url    https://github.com/bennyz/qarax
// @license.name  Apache 2.0
// @license.url   https://www.apache.org/licenses/LICENSE-2.0
// @host      localhost:8000
// @externalDocs.description  OpenAPI
// @externalDocs.url          https://swagger.io/resources/open-api/
func main() {
	var envConf = flag.String("conf", "config/local.yml", "config path, eg: -conf ./config/local.yml")
	flag.Parse()
	conf := config.NewConfig(*envConf)

	logger := log.NewLog(conf)

	app, cleanup, err := wire.NewWire(conf, logger)
	defer cleanup()
	if err != nil {
		panic(err)
	}
	logger.Info("server start", zap.String("host", fmt.Sprintf("http://%s:%d", conf.GetString("http.host"), conf.GetInt("http.port"))))
	logger.Info("docs addr", zap.String("addr", fmt.Sprintf("http://%s:%d/swagger/index.html", conf.GetString("http.host"), conf.GetInt("http.port"))))
	if err = app.Run(context.Background()); err != nil {
		panic(err)
	}
}
