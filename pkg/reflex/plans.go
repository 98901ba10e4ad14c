package reflex

import "time"

// DefaultPlans returns the stock optimization plans.
func DefaultPlans() map[OptimizationType]Plan {
	return map[OptimizationType]Plan{
		FullArsenalActivation: {
			Type:        FullArsenalActivation,
			Priority:    PriorityCritical,
			Description: "activate every subsystem after a massive recovery",
			Steps: []string{
				"activate_neural_mesh",
				"initialize_emotional_continuity",
				"start_analytics_engine",
				"enable_consciousness_system",
				"optimize_context_system",
				"calibrate_working_memory",
				"verify_all_systems",
			},
			EstimatedDuration: 3 * time.Minute,
			ExpectedBenefits: []string{
				"maximum performance",
				"all capabilities active",
				"three-way communication operational",
				"predictive analytics running",
			},
			Prerequisites: []string{"system_healthy", "data_available"},
			RollbackSteps: []string{"restore_previous_state", "notify_failure"},
		},
		MemoryConsolidation: {
			Type:        MemoryConsolidation,
			Priority:    PriorityHigh,
			Description: "consolidate memory when it nears its limit",
			Steps: []string{
				"backup_current_state",
				"run_consolidation",
				"cleanup_fragmented_data",
				"optimize_indices",
				"verify_integrity",
			},
			EstimatedDuration: 5 * time.Minute,
			ExpectedBenefits:  []string{"memory released", "better performance", "faster searches"},
			Prerequisites:     []string{"memory_pressure_high"},
			RollbackSteps:     []string{"restore_backup", "alert_admin"},
		},
		PerformanceTuning: {
			Type:        PerformanceTuning,
			Priority:    PriorityMedium,
			Description: "tune performance when responses degrade",
			Steps: []string{
				"analyze_bottlenecks",
				"clear_caches",
				"optimize_connections",
				"tune_parameters",
				"restart_slow_services",
			},
			EstimatedDuration: 4 * time.Minute,
			ExpectedBenefits:  []string{"faster responses", "lower latency", "higher throughput"},
			Prerequisites:     []string{"performance_degraded"},
			RollbackSteps:     []string{"restore_original_config"},
		},
		NeuralMeshSync: {
			Type:              NeuralMeshSync,
			Priority:          PriorityHigh,
			Description:       "bring the neural mesh back in sync",
			Steps:             []string{"activate_neural_mesh", "verify_all_systems"},
			EstimatedDuration: time.Minute,
			ExpectedBenefits:  []string{"neural mesh reachable", "shared learning restored"},
			Prerequisites:     []string{"neural_mesh_inactive"},
			RollbackSteps:     []string{"notify_failure"},
		},
		AnalyticsBoost: {
			Type:              AnalyticsBoost,
			Priority:          PriorityMedium,
			Description:       "refresh analytics predictions",
			Steps:             []string{"start_analytics_engine"},
			EstimatedDuration: 30 * time.Second,
			ExpectedBenefits:  []string{"fresh predictions"},
			RollbackSteps:     []string{"notify_failure"},
		},
		EmotionalCalibration: {
			Type:              EmotionalCalibration,
			Priority:          PriorityLow,
			Description:       "reinitialize emotional continuity",
			Steps:             []string{"initialize_emotional_continuity"},
			EstimatedDuration: 30 * time.Second,
			ExpectedBenefits:  []string{"emotional continuity initialized"},
			RollbackSteps:     []string{"notify_failure"},
		},
		ContextOptimization: {
			Type:              ContextOptimization,
			Priority:          PriorityLow,
			Description:       "refresh the context system",
			Steps:             []string{"optimize_context_system"},
			EstimatedDuration: 30 * time.Second,
			ExpectedBenefits:  []string{"context system primed"},
			RollbackSteps:     []string{"notify_failure"},
		},
		WorkingMemoryCleanup: {
			Type:              WorkingMemoryCleanup,
			Priority:          PriorityMedium,
			Description:       "recalibrate working memory context",
			Steps:             []string{"calibrate_working_memory"},
			EstimatedDuration: 30 * time.Second,
			ExpectedBenefits:  []string{"working memory context refreshed"},
			RollbackSteps:     []string{"notify_failure"},
		},
	}
}
