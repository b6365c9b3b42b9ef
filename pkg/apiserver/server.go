package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trititantech/server/pkg/backend"
	"github.com/trititantech/server/pkg/version"
	"golang.org/x/exp/maps"
)

type apiServer struct {
	ctx             context.Context
	log             *logrus.Entry
	port            int
	storeConfigured bool
}

func NewAPIServer(ctx context.Context, log *logrus.Entry, port int, storeConfigured bool) *apiServer {
	return &apiServer{
		ctx:             ctx,
		log:             log,
		port:            port,
		storeConfigured: storeConfigured,
	}
}

// NewRouter wires every route, the request middlewares and the CORS policy.
func NewRouter(b backend.Backend, log *logrus.Entry, storeConfigured bool) http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(loggingMiddleware(log), clientInfoMiddleware)
	h := newHandler(b, storeConfigured)

	// When functioning properly, these routes will return the endpoint catalog
	router.Path("/").Methods("GET").HandlerFunc(h.root)
	router.Path("/healthz").Methods("GET").HandlerFunc(h.root)

	api := map[string]http.HandlerFunc{
		"GET /api/health":   h.health,
		"GET /api/test-db":  h.testDB,
		"POST /api/users":   h.createRecord,
		"GET /api/users":    h.listRecords,
		"GET /api/download": h.downloadFile,
	}

	endpoints := maps.Keys(api)
	sort.Strings(endpoints)
	for _, endpoint := range endpoints {
		method, path, _ := strings.Cut(endpoint, " ")
		router.Path(path).Methods(method).HandlerFunc(api[endpoint])
	}
	h.endpoints = endpoints

	// Note: this allows not found urls to be logged via the middleware
	// It **HAS** to be defined after all other paths are defined.
	router.NotFoundHandler = router.NewRoute().HandlerFunc(notFound).GetHandler()

	return cors()(router)
}

// cors echoes any non-empty Origin and allows credentials. Every caller is
// trusted; the API carries no authentication.
func cors() func(http.Handler) http.Handler {
	return ghandlers.CORS(
		ghandlers.AllowedOriginValidator(func(origin string) bool { return origin != "" }),
		ghandlers.AllowCredentials(),
		ghandlers.AllowedMethods([]string{"GET", "HEAD", "POST", "OPTIONS"}),
		ghandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With"}),
	)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found", nil)
}

func (a *apiServer) Start(b backend.Backend) error {
	logrus.Infof("Version: %s", version.Get())

	// Below this point is where the server is started and graceful shutdown occurs.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           NewRouter(b, a.log, a.storeConfigured),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.WithField("port", a.port).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("listen: %s\n", err)
		}
	}()

	go b.StartHeartbeatDaemon(a.ctx.Done())

	<-a.ctx.Done()

	a.log.Info("shutting down the api server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("unable to shutdown the api server gracefully")
		return err
	}

	return nil
}
