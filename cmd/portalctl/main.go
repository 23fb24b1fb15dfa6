// @title                       Portal client inspection API
// @version                     1.0
// @description                 Reads and drives the cached portal session of a running portalctl.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import "github.com/amy/portal-client/cmd/portalctl/cmd"

func main() {
	cmd.Execute()
}
