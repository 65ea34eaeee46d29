// Snapbase snaps a depot coordinate onto the road network through the OSRM
// nearest endpoint. Useful when a raw base coordinate sits off-road and the
// table service returns inflated durations for it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/model"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/travel"
)

func main() {
	var (
		osrmURL = flag.String("osrm", "http://localhost:5000", "OSRM base URL")
		lon     = flag.Float64("lon", 0, "base longitude")
		lat     = flag.Float64("lat", 0, "base latitude")
		timeout = flag.Duration("timeout", 10*time.Second, "request timeout")
	)
	flag.Parse()

	p := model.Point{Lon: *lon, Lat: *lat}
	if !p.Valid() {
		fmt.Fprintln(os.Stderr, "snapbase: -lon and -lat are required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	snapped := travel.NewOSRM(*osrmURL, *timeout).Nearest(ctx, p)
	if snapped == p {
		fmt.Fprintln(os.Stderr, "snapbase: point unchanged (service unreachable or already on network)")
	}
	fmt.Printf("%.15f,%.15f\n", snapped.Lon, snapped.Lat)
}
