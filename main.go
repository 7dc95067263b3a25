/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
// @title           Docflow API
// @version         1.0
// @description     GMP document approval workflow API server

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token from Keycloak
package main

import "github.com/gmpstack/docflow/cmd"

func main() {
	cmd.Execute()
}
