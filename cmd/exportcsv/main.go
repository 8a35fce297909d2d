package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"course-dashboard/internal/app"
	"course-dashboard/internal/config"
	"course-dashboard/internal/domain"
	"course-dashboard/internal/export"
	"course-dashboard/internal/sftpclient"
)

func main() {
	var (
		outPath    = flag.String("out", "PROGRESS.csv", "output path; the extension picks csv or xml")
		gradesPath = flag.String("grades", "", "also write grade items to this csv path")
		userID     = flag.Int("user", 0, "user id (overrides dashboard.user_id)")
		uploadSFTP = flag.Bool("sftp", false, "upload the generated files via SFTP")
	)
	flag.Parse()

	rootCtx, rootCancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer rootCancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *userID != 0 {
		cfg.Dashboard.UserID = *userID
	}
	cfg.Log.Console = false

	a, err := app.New(rootCtx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close(context.Background())

	st, err := a.Orchestrator.Refresh(rootCtx)
	if st.Snapshot == nil {
		log.Fatalf("refresh failed: %v", err)
	}
	if err != nil {
		log.Printf("WARN: %v", err)
	}
	for _, f := range st.Snapshot.Failures {
		log.Printf("WARN: %s unavailable (%s), using %s data", f.Category, f.Error, f.Source)
	}

	written, err := writeReports(st.Snapshot, *outPath, *gradesPath)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d courses to %s (grades=%d, generation=%d)",
		len(st.Snapshot.Tree), strings.Join(written, ", "), len(st.Snapshot.Grades), st.Snapshot.Generation)

	if *uploadSFTP {
		upCfg := uploadConfig(cfg.Export.SFTP)

		upCtx, upCancel := context.WithTimeout(rootCtx, 5*time.Minute)
		defer upCancel()

		for _, p := range written {
			remoteName := filepath.Base(p)
			if err := sftpclient.UploadFile(upCtx, upCfg, p, remoteName); err != nil {
				log.Fatal(err)
			}
			log.Printf("uploaded to sftp://%s:%d%s/%s", upCfg.Host, upCfg.Port, upCfg.RemoteDir, remoteName)
		}
	}
}

func writeReports(s *domain.Snapshot, outPath, gradesPath string) ([]string, error) {
	var written []string
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".xml":
		if err := export.WriteProgressXML(outPath, s); err != nil {
			return nil, err
		}
	case ".csv", "":
		if err := export.WriteFile(outPath, func(w io.Writer) error {
			return export.WriteProgressCSV(w, s.Tree)
		}); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported output extension %q", filepath.Ext(outPath))
	}
	written = append(written, outPath)

	if gradesPath != "" {
		if err := export.WriteFile(gradesPath, func(w io.Writer) error {
			return export.WriteGradesCSV(w, s.Grades)
		}); err != nil {
			return nil, err
		}
		written = append(written, gradesPath)
	}
	return written, nil
}

func uploadConfig(c config.SFTPConfig) sftpclient.Config {
	return sftpclient.Config{
		Host:                  c.Host,
		Port:                  c.Port,
		User:                  c.User,
		Pass:                  c.Pass,
		RemoteDir:             c.Dir,
		InsecureIgnoreHostKey: c.Insecure,
		KnownHostsFile:        c.KnownHosts,
	}
}
