package main

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
)

type cfgData struct {
	File   string
	EnvVar string
}

func packConfig(jsonBytes []byte) (string, error) {
	var gzBuf bytes.Buffer

	gz := gzip.NewWriter(&gzBuf)
	if _, err := gz.Write(jsonBytes); err != nil {
		return "", err
	}

	if err := gz.Close(); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(gzBuf.Bytes()), nil
}

func main() {
	var cfgDir string
	var tgtEnv string
	var port string
	var solrURL string
	flag.StringVar(&cfgDir, "dir", "", "local directory holding the per-environment configuration")
	flag.StringVar(&tgtEnv, "env", "staging", "production or staging")
	flag.StringVar(&port, "port", "8080", "port to run the service on")
	flag.StringVar(&solrURL, "solr", "", "solr core url override")
	flag.Parse()

	if cfgDir == "" {
		log.Fatal("dir is required")
	}
	if tgtEnv != "staging" && tgtEnv != "production" {
		log.Fatal("env must be staging or production")
	}

	cfgBase := path.Join(cfgDir, tgtEnv, "solr-search-ws/environment")

	log.Printf("Generate service config for %s from %s", tgtEnv, cfgBase)
	cfgFiles := []cfgData{
		{File: "service.json", EnvVar: "SOLR_SEARCH_WS_JSON_01"},
		{File: "solr.json", EnvVar: "SOLR_SEARCH_WS_JSON_02"},
		{File: "criteria.json", EnvVar: "SOLR_SEARCH_WS_JSON_03"},
		{File: "context.json", EnvVar: "SOLR_SEARCH_WS_JSON_04"},
		{File: "sorts.json", EnvVar: "SOLR_SEARCH_WS_JSON_05"},
		{File: "facets.json", EnvVar: "SOLR_SEARCH_WS_JSON_06"},
	}

	out := make([]string, 0)
	for _, cf := range cfgFiles {
		tgtFile := path.Join(cfgBase, cf.File)
		jsonBytes, err := os.ReadFile(tgtFile)
		if err != nil {
			if os.IsNotExist(err) {
				log.Printf("skipping missing %s", tgtFile)
				continue
			}
			log.Fatal(err.Error())
		}

		if json.Valid(jsonBytes) == false {
			log.Fatalf("%s is not valid json", tgtFile)
		}

		if cf.File == "service.json" {
			// the service config carries the default port of "8080"
			jsonBytes = []byte(strings.Replace(string(jsonBytes), "8080", port, 1))
		}

		sEnc, err := packConfig(jsonBytes)
		if err != nil {
			log.Fatal(err.Error())
		}

		out = append(out, fmt.Sprintf("export %s=%s", cf.EnvVar, sEnc))
	}

	outF, err := os.Create("setup_env.sh")
	if err != nil {
		log.Fatal(err.Error())
	}
	defer outF.Close()

	outF.WriteString("#!/bin/bash\n\n")
	if solrURL != "" {
		outF.WriteString(fmt.Sprintf("export SOLR_SEARCH_WS_SOLR_URL=%s\n", solrURL))
	}
	outF.WriteString(strings.Join(out, "\n"))
	outF.WriteString("\n")

	if err := os.Chmod("setup_env.sh", 0755); err != nil {
		log.Fatal(err.Error())
	}
}
