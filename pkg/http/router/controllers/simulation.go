package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	helper "github.com/opennavx/navsim/pkg/http/router/routerhelper"
)

type simulationAPI struct {
	simulationService SimulationService
	log               *zap.Logger
}

func NewSimulationAPI(simulationService SimulationService, log *zap.Logger) *simulationAPI {
	return &simulationAPI{
		simulationService: simulationService,
		log:               log,
	}
}

func (api *simulationAPI) Routes(group *helper.RouteGroup) {
	group.POST("/simulations", api.startSimulation)
	group.GET("/simulations", api.listSimulations)
	group.GET("/simulations/:id", api.simulationState)
	group.POST("/simulations/:id/obstacles", api.injectObstacle)
	group.DELETE("/simulations/:id", api.cancelSimulation)
}

func (api *simulationAPI) validateRequest(w http.ResponseWriter, r *http.Request, request interface{}) bool {
	validate := validator.New()
	if err := validate.Struct(request); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		badRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return false
	}
	return true
}

func (api *simulationAPI) startSimulation(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request startSimulationRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}

	if !api.validateRequest(w, r, request) {
		return
	}

	sim, pathPolyline, err := api.simulationService.StartSimulation(
		request.OriginLat, request.OriginLon,
		request.DestinationLat, request.DestinationLon,
		request.Scenario, request.Algorithm)
	if err != nil {
		writeServiceError(api.log, w, r, err)
		return
	}

	headers := make(http.Header)
	if err := writeJSON(w, http.StatusCreated,
		envelope{"data": NewStartSimulationResponse(sim.Id(), sim.Route(), pathPolyline)}, headers); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}
}

func (api *simulationAPI) simulationState(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	state, err := api.simulationService.SimulationState(p.ByName("id"))
	if err != nil {
		writeServiceError(api.log, w, r, err)
		return
	}

	headers := make(http.Header)
	if err := writeJSON(w, http.StatusOK, envelope{"data": state}, headers); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}
}

func (api *simulationAPI) listSimulations(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	states := api.simulationService.ListSimulations()

	headers := make(http.Header)
	if err := writeJSON(w, http.StatusOK,
		envelope{"data": listSimulationsResponse{Simulations: states}}, headers); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}
}

func (api *simulationAPI) injectObstacle(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request injectObstacleRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}

	if !api.validateRequest(w, r, request) {
		return
	}

	frozen, err := api.simulationService.InjectObstacle(p.ByName("id"), request.ToCoordinates())
	if err != nil {
		writeServiceError(api.log, w, r, err)
		return
	}

	headers := make(http.Header)
	if err := writeJSON(w, http.StatusAccepted,
		envelope{"data": injectObstacleResponse{Frozen: frozen}}, headers); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}
}

func (api *simulationAPI) cancelSimulation(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := api.simulationService.CancelSimulation(p.ByName("id")); err != nil {
		writeServiceError(api.log, w, r, err)
		return
	}

	headers := make(http.Header)
	if err := writeJSON(w, http.StatusOK,
		envelope{"data": "simulation cancelled"}, headers); err != nil {
		serverErrorResponse(api.log, w, r, err)
		return
	}
}
